package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	bq "github.com/dvloznov/ledger-bot/internal/bigquery"
	"google.golang.org/api/option"
)

// Re-export types from shared package for callers of the implementation.
type (
	CommitRepository = bq.CommitRepository
	CommitRow        = bq.CommitRow
	TableRef         = bq.TableRef
)

// BigQueryCommitRepository is the concrete implementation of CommitRepository
// that interacts with BigQuery. It holds a shared BigQuery client.
type BigQueryCommitRepository struct {
	client *bigquery.Client
	ref    bq.TableRef
}

// NewBigQueryCommitRepository creates a new instance of BigQueryCommitRepository
// with a shared BigQuery client.
func NewBigQueryCommitRepository(ctx context.Context, ref bq.TableRef, opts ...option.ClientOption) (*BigQueryCommitRepository, error) {
	client, err := bigquery.NewClient(ctx, ref.Project, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryCommitRepository: creating client: %w", err)
	}
	return &BigQueryCommitRepository{
		client: client,
		ref:    ref,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *BigQueryCommitRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// EnsureCommitsTable delegates to EnsureCommitsTableWithClient with the shared client.
func (r *BigQueryCommitRepository) EnsureCommitsTable(ctx context.Context) error {
	return EnsureCommitsTableWithClient(ctx, r.client, r.ref)
}

// InsertCommit delegates to InsertCommitWithClient with the shared client.
func (r *BigQueryCommitRepository) InsertCommit(ctx context.Context, row *bq.CommitRow) error {
	return InsertCommitWithClient(ctx, r.client, r.ref, row)
}

// ListCommits delegates to ListCommitsWithClient with the shared client.
func (r *BigQueryCommitRepository) ListCommits(ctx context.Context, from, to civil.Date) ([]*bq.CommitRow, error) {
	return ListCommitsWithClient(ctx, r.client, r.ref, from, to)
}

// Ensure BigQueryCommitRepository implements CommitRepository interface.
var _ bq.CommitRepository = (*BigQueryCommitRepository)(nil)
