package chat

import "iter"

// Completions is a single-use sequence of candidate replies. Once drained
// it keeps reporting exhaustion; it never errors.
type Completions struct {
	items []Message
	pos   int
}

func NewCompletions(items ...Message) *Completions {
	return &Completions{items: items}
}

func (c *Completions) Next() (Message, bool) {
	if c == nil || c.pos >= len(c.items) {
		return Message{}, false
	}
	m := c.items[c.pos]
	c.pos++
	return m, true
}

// Len reports how many completions are left.
func (c *Completions) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items) - c.pos
}

// All drains the sequence. Stopping early leaves the rest for Next.
func (c *Completions) All() iter.Seq[Message] {
	return func(yield func(Message) bool) {
		for {
			m, ok := c.Next()
			if !ok || !yield(m) {
				return
			}
		}
	}
}

func (c *Completions) Collect() History {
	out := make(History, 0, c.Len())
	for m := range c.All() {
		out = append(out, m)
	}
	return out
}

// NextCompletion returns the next completion, if any.
func NextCompletion(c *Completions) (Message, bool) {
	return c.Next()
}
