package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ibreez3/ai-chat/chat"
)

var ErrSessionNotFound = errors.New("service: session not found")

type SessionStatus string

const (
	SessionIdle   SessionStatus = "idle"
	SessionBusy   SessionStatus = "busy"
	SessionFailed SessionStatus = "failed"
	SessionReady  SessionStatus = "ready"
)

// Entry is one managed conversation. turn serialises Ask on the session;
// mu guards the snapshot readers see, so reads never wait for a turn.
type Entry struct {
	ID        string
	CreatedAt time.Time

	turn    sync.Mutex
	session *chat.Session

	mu        sync.Mutex
	history   chat.History
	status    SessionStatus
	lastError string
	updatedAt time.Time
}

type SessionInfo struct {
	ID        string        `json:"id"`
	Status    SessionStatus `json:"status"`
	Messages  int           `json:"messages"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (e *Entry) Info() SessionInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return SessionInfo{
		ID:        e.ID,
		Status:    e.status,
		Messages:  len(e.history),
		Error:     e.lastError,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.updatedAt,
	}
}

// Transcript includes the prompt of a turn still in flight.
func (e *Entry) Transcript() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Transcript()
}

func (e *Entry) Messages() chat.History {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Clone()
}

// record publishes the session state after a turn. Callers hold turn.
func (e *Entry) record(status SessionStatus, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = e.session.Messages()
	e.status = status
	e.lastError = ""
	if err != nil {
		e.lastError = err.Error()
	}
	e.updatedAt = time.Now()
}

// Manager keeps sessions in memory. Sessions share one Completer and run
// independently of each other.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Entry
	gen      chat.Completer
	log      logrus.FieldLogger
}

func NewManager(gen chat.Completer, log logrus.FieldLogger) *Manager {
	return &Manager{
		sessions: map[string]*Entry{},
		gen:      gen,
		log:      log.WithField("component", "sessions"),
	}
}

func (m *Manager) Create(seed chat.History) (*Entry, error) {
	for _, msg := range seed {
		if _, err := msg.Role(); err != nil {
			return nil, err
		}
	}
	now := time.Now()
	session := chat.NewSession(m.gen, seed...)
	e := &Entry{
		ID:        uuid.NewString(),
		CreatedAt: now,
		session:   session,
		history:   session.Messages(),
		status:    SessionIdle,
		updatedAt: now,
	}
	m.mu.Lock()
	m.sessions[e.ID] = e
	m.mu.Unlock()
	m.log.WithFields(logrus.Fields{"session": e.ID, "seed": len(seed)}).Info("session created")
	return e, nil
}

func (m *Manager) Get(id string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// List returns session summaries, oldest first.
func (m *Manager) List() []SessionInfo {
	m.mu.Lock()
	entries := make([]*Entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	out := make([]SessionInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Ask runs one turn on session id. Turns on the same session wait for
// each other; Info, Transcript and Messages do not.
func (m *Manager) Ask(ctx context.Context, id, prompt string) (string, error) {
	e, err := m.Get(id)
	if err != nil {
		return "", err
	}
	e.turn.Lock()
	defer e.turn.Unlock()

	e.mu.Lock()
	e.history = append(e.session.Messages(), chat.UserMessage(prompt))
	e.status = SessionBusy
	e.mu.Unlock()

	reply, err := e.session.Ask(ctx, prompt)
	log := m.log.WithFields(logrus.Fields{"session": id, "messages": e.session.Len()})
	if err != nil {
		e.record(SessionFailed, err)
		log.WithError(err).Warn("turn failed")
		return "", err
	}
	e.record(SessionReady, nil)
	log.Debug("turn completed")
	return reply, nil
}

// Complete generates n completions for history without keeping any state.
func (m *Manager) Complete(ctx context.Context, history chat.History, n int) (chat.History, error) {
	if err := history.Validate(); err != nil {
		return nil, err
	}
	c, err := m.gen.Generate(ctx, history, n)
	if err != nil {
		return nil, err
	}
	return c.Collect(), nil
}
