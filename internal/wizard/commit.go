package wizard

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dvloznov/ledger-bot/internal/domain"
	"github.com/dvloznov/ledger-bot/internal/logger"
)

const textSaveFailed = "Could not save the transaction, please try again."

// commit appends the draft to the ledger. The session is only removed once
// the append succeeded.
func (m *Machine) commit(ctx context.Context, s *Session) error {
	log := logger.FromContext(ctx).With().Str("session_id", s.ID).Logger()

	if err := s.Draft.Validate(); err != nil {
		return inputError("Cannot save: " + err.Error())
	}

	rec := s.Draft.Record(m.cfg.DateLayout)
	if err := m.cfg.Ledger.AppendRecord(ctx, rec); err != nil {
		log.Error().Err(err).Str("step", s.Step.String()).Msg("Failed to append record")
		return m.keepForRetry(ctx, s)
	}

	log.Info().Str("category", rec.Category).Str("account", rec.Account).Msg("Transaction saved")
	return m.finish(ctx, s, domain.CommitLedger, "", textSaved+"\n"+m.render.Summary(s.Draft))
}

// commitShared creates the split expense for a quick-added amount.
func (m *Machine) commitShared(ctx context.Context, s *Session, categoryID int64, categoryName string) error {
	log := logger.FromContext(ctx).With().Str("session_id", s.ID).Logger()

	if m.cfg.Sharing == nil {
		return inputError("Shared expenses are not configured.")
	}
	if !s.Draft.Outflow.Valid {
		return inputError("Cannot save: " + domain.ErrNoAmount.Error())
	}

	exp := domain.SharedExpense{
		PayerID:      m.cfg.Share.PayerID,
		PayeeID:      m.cfg.Share.PayeeID,
		GroupID:      m.cfg.Share.GroupID,
		CategoryID:   categoryID,
		CategoryName: categoryName,
		Amount:       s.Draft.Outflow.Decimal,
		Currency:     m.cfg.Share.Currency,
		Memo:         s.Draft.Memo,
		Date:         s.Draft.Date,
	}
	id, err := m.cfg.Sharing.CreateSharedExpense(ctx, exp)
	if err != nil {
		log.Error().Err(err).Str("category", categoryName).Msg("Failed to create shared expense")
		return m.keepForRetry(ctx, s)
	}

	s.Draft.Category = categoryName
	log.Info().Int64("expense_id", id).Str("category", categoryName).Msg("Shared expense saved")

	summary := strings.Join([]string{
		textSharedSaved,
		"Amount: " + m.render.FieldValue(s.Draft, FieldOutflow),
		"Category: " + categoryName,
		"Memo: " + orBlank(s.Draft.Memo),
	}, "\n")
	return m.finish(ctx, s, domain.CommitShared, strconv.FormatInt(id, 10), summary)
}

// keepForRetry tells the user the save failed and shows the same step again.
func (m *Machine) keepForRetry(ctx context.Context, s *Session) error {
	if err := m.reply(ctx, s.ChatID, 0, textSaveFailed); err != nil {
		return err
	}
	return m.show(ctx, s)
}

// finish removes the committed session, closes its prompt and notifies the sink.
func (m *Machine) finish(ctx context.Context, s *Session, kind domain.CommitKind, externalID, text string) error {
	if err := m.cfg.Registry.Clear(ctx, s.UserID); err != nil {
		return fmt.Errorf("finish: clear session: %w", err)
	}
	s.Step = StepCommitted

	if m.cfg.Sink != nil {
		c := domain.Commit{
			SessionID:   s.ID,
			UserID:      s.UserID,
			Kind:        kind,
			Draft:       s.Draft,
			ExternalID:  externalID,
			CommittedAt: m.cfg.Now(),
		}
		if err := m.cfg.Sink.RecordCommitted(ctx, c); err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Str("session_id", s.ID).Msg("Failed to record commit")
		}
	}

	if err := m.cfg.Messenger.EditPrompt(ctx, s.Anchor, TextPrompt(text)); err != nil {
		return fmt.Errorf("finish: edit prompt: %w", err)
	}
	return nil
}
