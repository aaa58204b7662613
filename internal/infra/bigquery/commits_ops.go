package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	bq "github.com/dvloznov/ledger-bot/internal/bigquery"
	"google.golang.org/api/iterator"
)

// createCommitsTableSQL returns the DDL of the mirror table.
func createCommitsTableSQL(ref bq.TableRef) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			commit_id        STRING NOT NULL,
			session_id       STRING NOT NULL,
			user_id          INT64 NOT NULL,
			kind             STRING NOT NULL,
			transaction_date DATE NOT NULL,
			outflow          NUMERIC,
			inflow           NUMERIC,
			category         STRING,
			account          STRING,
			memo             STRING,
			external_id      STRING,
			committed_ts     TIMESTAMP NOT NULL
		)
		PARTITION BY transaction_date
	`, ref)
}

// EnsureCommitsTableWithClient creates the mirror table if it doesn't exist.
func EnsureCommitsTableWithClient(ctx context.Context, client *bigquery.Client, ref bq.TableRef) error {
	job, err := client.Query(createCommitsTableSQL(ref)).Run(ctx)
	if err != nil {
		return fmt.Errorf("EnsureCommitsTable: running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("EnsureCommitsTable: waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("EnsureCommitsTable: job error: %w", err)
	}

	return nil
}

// InsertCommitWithClient streams one CommitRow into the mirror table.
func InsertCommitWithClient(ctx context.Context, client *bigquery.Client, ref bq.TableRef, row *bq.CommitRow) error {
	inserter := client.DatasetInProject(ref.Project, ref.Dataset).Table(ref.Table).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertCommit: inserting row: %w", err)
	}
	return nil
}

// ListCommitsWithClient returns commits dated within [from, to], oldest first.
func ListCommitsWithClient(ctx context.Context, client *bigquery.Client, ref bq.TableRef, from, to civil.Date) ([]*bq.CommitRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			commit_id,
			session_id,
			user_id,
			kind,
			transaction_date,
			outflow,
			inflow,
			category,
			account,
			memo,
			external_id,
			committed_ts
		FROM %s
		WHERE transaction_date >= @start_date
		  AND transaction_date <= @end_date
		ORDER BY transaction_date, committed_ts
	`, ref))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: from},
		{Name: "end_date", Value: to},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCommits: query read: %w", err)
	}

	var rows []*bq.CommitRow
	for {
		var r bq.CommitRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCommits: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}
