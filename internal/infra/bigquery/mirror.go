package bigquery

import (
	"context"
	"fmt"

	bq "github.com/dvloznov/ledger-bot/internal/bigquery"
	"github.com/dvloznov/ledger-bot/internal/domain"
	"github.com/dvloznov/ledger-bot/internal/logger"
	"github.com/dvloznov/ledger-bot/internal/wizard"
)

// Mirror copies every committed draft into BigQuery for reporting.
type Mirror struct {
	repo bq.CommitRepository
}

// NewMirror creates a mirror writing through repo.
func NewMirror(repo bq.CommitRepository) *Mirror {
	return &Mirror{repo: repo}
}

// RecordCommitted implements the wizard.CommitSink interface.
func (m *Mirror) RecordCommitted(ctx context.Context, c domain.Commit) error {
	row := bq.NewCommitRow(c)
	if err := m.repo.InsertCommit(ctx, row); err != nil {
		return fmt.Errorf("RecordCommitted: %w", err)
	}

	log := logger.FromContext(ctx)

	log.Debug().
		Str("commit_id", row.CommitID).
		Str("kind", row.Kind).
		Msg("Mirrored commit")
	return nil
}

// Ensure Mirror implements wizard.CommitSink interface.
var _ wizard.CommitSink = (*Mirror)(nil)
