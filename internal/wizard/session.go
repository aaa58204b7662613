package wizard

import (
	"context"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ledger-bot/internal/domain"
)

// Session is the conversation state of one user.
type Session struct {
	// ID correlates log lines and commit records of one conversation.
	ID     string `json:"id"`
	UserID int64  `json:"user_id"`
	ChatID int64  `json:"chat_id"`

	Step  Step         `json:"step"`
	Draft domain.Draft `json:"draft"`

	// Anchor is the message that shows the active prompt.
	Anchor MessageRef `json:"anchor"`

	// Shared marks a split expense started by a quick-add. The amount lives
	// in Draft.Outflow.
	Shared bool `json:"shared,omitempty"`

	// Picker positions.
	CategoryGroup  string     `json:"category_group,omitempty"`
	SharedCategory string     `json:"shared_category,omitempty"`
	AccountPage    int        `json:"account_page,omitempty"`
	CalendarMonth  civil.Date `json:"calendar_month"`

	UpdatedAt time.Time `json:"updated_at"`
}

// clone returns an independent copy. Draft amounts are immutable decimals,
// so a value copy shares nothing that can change.
func (s *Session) clone() *Session {
	c := *s
	return &c
}

// Registry stores at most one session per user.
type Registry interface {
	// Get returns a copy of the user's session or ErrNoSession.
	Get(ctx context.Context, userID int64) (*Session, error)

	// Put stores a copy of the session, replacing any previous one for the user.
	Put(ctx context.Context, s *Session) error

	// Clear removes the user's session. Clearing a missing session is not an error.
	Clear(ctx context.Context, userID int64) error

	// Expired returns sessions last updated before the given time.
	Expired(ctx context.Context, before time.Time) ([]*Session, error)
}

// MemoryRegistry is an in-memory Registry. It is safe for concurrent use.
type MemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{sessions: make(map[int64]*Session)}
}

// Get implements Registry.
func (r *MemoryRegistry) Get(ctx context.Context, userID int64) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[userID]
	if !ok {
		return nil, ErrNoSession
	}
	return s.clone(), nil
}

// Put implements Registry.
func (r *MemoryRegistry) Put(ctx context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.UserID] = s.clone()
	return nil
}

// Clear implements Registry.
func (r *MemoryRegistry) Clear(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, userID)
	return nil
}

// Expired implements Registry.
func (r *MemoryRegistry) Expired(ctx context.Context, before time.Time) ([]*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Session
	for _, s := range r.sessions {
		if s.UpdatedAt.Before(before) {
			out = append(out, s.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

var _ Registry = (*MemoryRegistry)(nil)
