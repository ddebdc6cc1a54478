package chat

import "context"

// Session accumulates the history of one conversation. It is not safe for
// concurrent Ask calls; one goroutine drives one conversation.
type Session struct {
	generate Completer
	history  History
}

// NewSession starts a conversation, optionally seeded with earlier
// messages such as a system prompt or another session's Messages.
func NewSession(generate Completer, seed ...Message) *Session {
	return &Session{generate: generate, history: History(seed).Clone()}
}

// Ask records prompt as a user message, asks for one completion and
// records it. If generation fails the user message stays in the history
// and the error is returned unchanged.
func (s *Session) Ask(ctx context.Context, prompt string) (string, error) {
	s.history = append(s.history, UserMessage(prompt))
	completions, err := s.generate.Generate(ctx, s.history.Clone(), 1)
	if err != nil {
		return "", err
	}
	response, ok := completions.Next()
	if !ok {
		return "", ErrNoCompletions
	}
	s.history = append(s.history, response)
	return response.Content(), nil
}

func (s *Session) Transcript() []string {
	return s.history.Transcript()
}

// Messages returns a copy of the history.
func (s *Session) Messages() History {
	return s.history.Clone()
}

func (s *Session) Len() int { return len(s.history) }
