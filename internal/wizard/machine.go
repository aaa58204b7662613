// Package wizard implements the transaction entry conversation: one session
// per user, a transition table keyed by step and event kind, and the commit
// of a finished draft to the ledger or the sharing service.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ledger-bot/internal/catalog"
	"github.com/dvloznov/ledger-bot/internal/domain"
	"github.com/dvloznov/ledger-bot/internal/logger"
	"github.com/google/uuid"
)

const (
	defaultCurrency   = "₱"
	defaultDateLayout = "01/02/2006"
)

// ShareConfig holds the fixed parties of a split expense.
type ShareConfig struct {
	PayerID  int64
	PayeeID  int64
	GroupID  int64
	Currency string
}

// Config wires a Machine to its collaborators.
type Config struct {
	Ledger    LedgerGateway
	Messenger Messenger

	// Sharing enables AddSplit when set.
	Sharing SharingGateway
	Share   ShareConfig

	// Sink is optional and only notified about successful commits.
	Sink CommitSink

	// Registry defaults to a MemoryRegistry.
	Registry Registry

	Catalogs   catalog.Catalogs
	Currency   string
	DateLayout string
	Location   *time.Location

	// AccountPageSize defaults to ten accounts per picker page.
	AccountPageSize int

	// Now defaults to time.Now.
	Now func() time.Time
}

type handler func(ctx context.Context, s *Session, ev Event) error

// Machine routes chat events through the conversation. It is safe for
// concurrent use; events of one user are handled one at a time.
type Machine struct {
	cfg         Config
	render      Renderer
	transitions map[Step]map[EventKind]handler
	locks       userLocks
}

// New validates cfg and builds a Machine.
func New(cfg Config) (*Machine, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("wizard.New: ledger gateway is required")
	}
	if cfg.Messenger == nil {
		return nil, errors.New("wizard.New: messenger is required")
	}
	if cfg.Registry == nil {
		cfg.Registry = NewMemoryRegistry()
	}
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	if cfg.DateLayout == "" {
		cfg.DateLayout = defaultDateLayout
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	m := &Machine{
		cfg: cfg,
		render: Renderer{
			Currency:        cfg.Currency,
			DateLayout:      cfg.DateLayout,
			Catalogs:        cfg.Catalogs,
			AccountPageSize: cfg.AccountPageSize,
		},
		locks: userLocks{locks: make(map[int64]*userLock)},
	}
	m.transitions = m.transitionTable()
	return m, nil
}

// Renderer returns the renderer used for prompts.
func (m *Machine) Renderer() Renderer {
	return m.render
}

// Handle applies one event. Input problems are answered in the chat and are
// not returned; the returned error reports infrastructure failures only.
func (m *Machine) Handle(ctx context.Context, ev Event) error {
	unlock := m.locks.lock(ev.UserID)
	defer unlock()

	log := logger.FromContext(ctx).With().
		Int64("user_id", ev.UserID).
		Str("event", ev.Kind.String()).
		Logger()
	ctx = logger.WithContext(ctx, log)

	err := m.dispatch(ctx, ev)

	var inErr *InputError
	if errors.As(err, &inErr) {
		log.Debug().Str("reason", inErr.Msg).Msg("Rejected input")
		err = m.reply(ctx, ev.ChatID, replyTo(ev), inErr.Msg)
	}

	answer := ""
	var n notice
	if errors.As(err, &n) {
		log.Debug().Str("notice", string(n)).Msg("Ignored event")
		answer = string(n)
		err = nil
	}

	if ev.Kind == EventClick {
		if aerr := m.cfg.Messenger.AnswerClick(ctx, ev.ClickID, answer); aerr != nil && err == nil {
			err = fmt.Errorf("Handle: answer click: %w", aerr)
		}
	}
	return err
}

func (m *Machine) dispatch(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventCommand:
		switch ev.Command {
		case "start", "s":
			return m.start(ctx, ev)
		case "cancel", "q":
			return m.cancelCommand(ctx, ev)
		}
		return nil
	case EventText:
		if MatchQuickAdd(ev.Text) != QuickNone {
			return m.quickAdd(ctx, ev)
		}
	}

	s, err := m.cfg.Registry.Get(ctx, ev.UserID)
	if errors.Is(err, ErrNoSession) {
		if ev.Kind == EventClick {
			return errStale
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("dispatch: get session: %w", err)
	}

	if ev.Kind == EventClick {
		// Keyboards of earlier sessions stay visible in the chat.
		if ev.MessageID != s.Anchor.MessageID || ev.Action.Kind == ActionNone {
			return errStale
		}
		switch ev.Action.Kind {
		case ActionIgnore:
			return nil
		case ActionCancel:
			return m.cancel(ctx, s)
		}
	}

	h, ok := m.transitions[s.Step][ev.Kind]
	if !ok {
		if ev.Kind == EventClick {
			return errStale
		}
		return nil
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("session_id", s.ID).
		Str("step", s.Step.String()).
		Msg("Handling event")
	return h(ctx, s, ev)
}

// start opens a guided session, cancelling any session already running.
func (m *Machine) start(ctx context.Context, ev Event) error {
	if _, err := m.terminate(ctx, ev.UserID, textCancelled); err != nil {
		return err
	}
	s := m.newSession(ev)
	s.Step = StepReviewMenu
	return m.open(ctx, s)
}

// quickAdd opens a session pre-filled from a one-shot command.
func (m *Machine) quickAdd(ctx context.Context, ev Event) error {
	if _, err := m.terminate(ctx, ev.UserID, textCancelled); err != nil {
		return err
	}

	q, err := ParseQuickAdd(ev.Text)
	if err != nil {
		return err
	}
	if q.Kind == QuickSplit && m.cfg.Sharing == nil {
		return inputError("Shared expenses are not configured.")
	}

	s := m.newSession(ev)
	if err := q.apply(&s.Draft); err != nil {
		return err
	}
	if q.Kind == QuickSplit {
		s.Shared = true
		s.Step = StepAwaitingSharedCategory
	} else {
		s.Step = StepQuickReview
	}
	return m.open(ctx, s)
}

func (m *Machine) cancelCommand(ctx context.Context, ev Event) error {
	existed, err := m.terminate(ctx, ev.UserID, textCancelled)
	if err != nil {
		return err
	}
	if !existed {
		return m.reply(ctx, ev.ChatID, ev.MessageID, "No active transaction.")
	}
	return m.reply(ctx, ev.ChatID, ev.MessageID, textCancelled)
}

// cancel ends s from its own Cancel button.
func (m *Machine) cancel(ctx context.Context, s *Session) error {
	if err := m.cfg.Registry.Clear(ctx, s.UserID); err != nil {
		return fmt.Errorf("cancel: clear session: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Str("session_id", s.ID).Msg("Transaction cancelled")
	if err := m.cfg.Messenger.EditPrompt(ctx, s.Anchor, TextPrompt(textCancelled)); err != nil {
		return fmt.Errorf("cancel: edit prompt: %w", err)
	}
	return nil
}

// terminate removes the user's session, if any, and replaces its keyboard
// with text. It reports whether a session existed.
func (m *Machine) terminate(ctx context.Context, userID int64, text string) (bool, error) {
	s, err := m.cfg.Registry.Get(ctx, userID)
	if errors.Is(err, ErrNoSession) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("terminate: get session: %w", err)
	}
	if err := m.cfg.Registry.Clear(ctx, userID); err != nil {
		return true, fmt.Errorf("terminate: clear session: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().Str("session_id", s.ID).Str("step", s.Step.String()).Msg("Session terminated")

	if !s.Anchor.IsZero() {
		if err := m.cfg.Messenger.EditPrompt(ctx, s.Anchor, TextPrompt(text)); err != nil {
			// The old message may be gone; the session is cleared regardless.
			log.Warn().Err(err).Str("session_id", s.ID).Msg("Failed to close previous prompt")
		}
	}
	return true, nil
}

func (m *Machine) newSession(ev Event) *Session {
	return &Session{
		ID:     uuid.NewString(),
		UserID: ev.UserID,
		ChatID: ev.ChatID,
		Step:   StepIdle,
		Draft:  domain.NewDraft(m.today()),
	}
}

// open sends the first prompt of a session and stores it as the anchor.
func (m *Machine) open(ctx context.Context, s *Session) error {
	ref, err := m.cfg.Messenger.SendPrompt(ctx, s.ChatID, m.render.Render(s))
	if err != nil {
		return fmt.Errorf("open: send prompt: %w", err)
	}
	s.Anchor = ref

	log := logger.FromContext(ctx)
	log.Info().
		Str("session_id", s.ID).
		Str("step", s.Step.String()).
		Msg("Session started")
	return m.save(ctx, s)
}

// show re-renders the anchor of s in place and then stores s. When the edit
// fails the registry keeps the previous step, which still matches the
// keyboard on screen.
func (m *Machine) show(ctx context.Context, s *Session) error {
	if err := m.cfg.Messenger.EditPrompt(ctx, s.Anchor, m.render.Render(s)); err != nil {
		return fmt.Errorf("show: edit prompt: %w", err)
	}
	return m.save(ctx, s)
}

func (m *Machine) save(ctx context.Context, s *Session) error {
	s.UpdatedAt = m.cfg.Now()
	if err := m.cfg.Registry.Put(ctx, s); err != nil {
		return fmt.Errorf("save: put session: %w", err)
	}
	return nil
}

func (m *Machine) reply(ctx context.Context, chatID int64, replyTo int, text string) error {
	if err := m.cfg.Messenger.Reply(ctx, chatID, replyTo, text); err != nil {
		return fmt.Errorf("reply: %w", err)
	}
	return nil
}

func (m *Machine) today() civil.Date {
	return domain.Today(m.cfg.Now(), m.cfg.Location)
}

// replyTo returns the message an answer should quote. Clicks quote nothing.
func replyTo(ev Event) int {
	if ev.Kind == EventClick {
		return 0
	}
	return ev.MessageID
}

// userLocks serialises work per user. Entries are dropped once unused.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func (l *userLocks) lock(userID int64) func() {
	l.mu.Lock()
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
