package bigquery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	bq "github.com/dvloznov/ledger-bot/internal/bigquery"
	"github.com/dvloznov/ledger-bot/internal/domain"
	"github.com/shopspring/decimal"
)

type fakeRepo struct {
	rows []*bq.CommitRow
	err  error
}

func (f *fakeRepo) EnsureCommitsTable(ctx context.Context) error { return nil }

func (f *fakeRepo) InsertCommit(ctx context.Context, row *bq.CommitRow) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeRepo) ListCommits(ctx context.Context, from, to civil.Date) ([]*bq.CommitRow, error) {
	return f.rows, nil
}

func TestMirror_RecordCommitted(t *testing.T) {
	repo := &fakeRepo{}
	m := NewMirror(repo)

	err := m.RecordCommitted(context.Background(), domain.Commit{
		SessionID:   "s",
		UserID:      1,
		Kind:        domain.CommitShared,
		Draft:       domain.Draft{Date: civil.Date{Year: 2024, Month: 3, Day: 7}, Outflow: decimal.NewNullDecimal(decimal.NewFromInt(300))},
		ExternalID:  "555",
		CommittedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("RecordCommitted() error: %v", err)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("inserted %d rows, want 1", len(repo.rows))
	}
	if row := repo.rows[0]; row.Kind != "shared" || row.ExternalID.StringVal != "555" {
		t.Errorf("row = %+v", row)
	}
}

func TestMirror_RecordCommittedError(t *testing.T) {
	boom := errors.New("boom")
	m := NewMirror(&fakeRepo{err: boom})

	if err := m.RecordCommitted(context.Background(), domain.Commit{}); !errors.Is(err, boom) {
		t.Errorf("RecordCommitted() error = %v, want boom", err)
	}
}

func TestCreateCommitsTableSQL(t *testing.T) {
	sql := createCommitsTableSQL(bq.TableRef{Project: "p", Dataset: "d", Table: "t"})
	for _, want := range []string{"CREATE TABLE IF NOT EXISTS `p.d.t`", "transaction_date DATE NOT NULL", "PARTITION BY transaction_date"} {
		if !strings.Contains(sql, want) {
			t.Errorf("DDL missing %q", want)
		}
	}
}
