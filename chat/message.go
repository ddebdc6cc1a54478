// Package chat turns conversation histories into model completions and
// keeps the state of multi-turn sessions.
package chat

import (
	"encoding/json"
	"slices"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

func ParseRole(tag string) (Role, error) {
	switch Role(tag) {
	case RoleUser, RoleAssistant, RoleSystem:
		return Role(tag), nil
	}
	return "", &InvalidRoleError{Tag: tag}
}

// Message is one turn of a conversation. It is a value type and has no
// setters; copies never alias.
type Message struct {
	role    string
	content string
}

func NewMessage(role Role, content string) Message {
	return Message{role: string(role), content: content}
}

func UserMessage(text string) Message      { return NewMessage(RoleUser, text) }
func AssistantMessage(text string) Message { return NewMessage(RoleAssistant, text) }
func SystemMessage(text string) Message    { return NewMessage(RoleSystem, text) }

// Role parses the role tag carried by the message.
func (m Message) Role() (Role, error) {
	return ParseRole(m.role)
}

// Tag returns the raw role tag without validating it.
func (m Message) Tag() string { return m.role }

func (m Message) Content() string { return m.content }

func (m Message) IsUser() bool      { return m.is(RoleUser) }
func (m Message) IsAssistant() bool { return m.is(RoleAssistant) }
func (m Message) IsSystem() bool    { return m.is(RoleSystem) }

func (m Message) is(want Role) bool {
	r, err := m.Role()
	return err == nil && r == want
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{Role: m.role, Content: m.content})
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var w wireMessage
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*m = Message{role: w.Role, content: w.Content}
	return nil
}

// History is a conversation in the order it happened.
type History []Message

func (h History) Transcript() []string {
	out := make([]string, 0, len(h))
	for _, m := range h {
		out = append(out, m.Content())
	}
	return out
}

// Validate rejects an empty history and any message with an unknown role.
func (h History) Validate() error {
	if len(h) == 0 {
		return &ConfigurationError{Field: "history", Reason: "must contain at least one message"}
	}
	for _, m := range h {
		if _, err := m.Role(); err != nil {
			return err
		}
	}
	return nil
}

func (h History) Last() (Message, bool) {
	if len(h) == 0 {
		return Message{}, false
	}
	return h[len(h)-1], true
}

func (h History) Clone() History {
	return slices.Clone(h)
}
