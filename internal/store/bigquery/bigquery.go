// Package bigquery is the BigQuery-backed Store implementation. Records
// live in a single `records` table with an ARRAY<FLOAT64> embedding
// column; nearest-neighbor queries use ML.DISTANCE.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/store"
	"github.com/shopspring/decimal"
)

const recordsTable = "records"

// RecordRow is the BigQuery row shape for a financial record.
type RecordRow struct {
	RecordID    string     `bigquery:"record_id"`
	UserID      string     `bigquery:"user_id"`
	Kind        string     `bigquery:"kind"`
	Description string     `bigquery:"description"`
	Amount      float64    `bigquery:"amount"`
	Currency    string     `bigquery:"currency"`
	Category    string     `bigquery:"category"`
	RecordDate  civil.Date `bigquery:"record_date"`
	Period      string     `bigquery:"period"`
	Embedding   []float64  `bigquery:"embedding"`
	CreatedTS   time.Time  `bigquery:"created_ts"`
}

// Store is the concrete BigQuery implementation. It holds a shared client
// to avoid creating a new connection for each operation.
type Store struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// New creates a BigQuery store for the given project and dataset.
func New(ctx context.Context, projectID, datasetID string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery.New: creating client: %w", err)
	}
	return &Store{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
	}, nil
}

// Close closes the BigQuery client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *Store) table() string {
	return fmt.Sprintf("`%s.%s.%s`", s.projectID, s.datasetID, recordsTable)
}

// InsertRecord implements the Store interface via the streaming inserter.
func (s *Store) InsertRecord(ctx context.Context, rec *domain.FinancialRecord) error {
	inserter := s.client.DatasetInProject(s.projectID, s.datasetID).Table(recordsTable).Inserter()
	if err := inserter.Put(ctx, toRow(rec)); err != nil {
		return fmt.Errorf("InsertRecord: inserting row: %w", err)
	}
	return nil
}

// ListRecords implements the Store interface.
func (s *Store) ListRecords(ctx context.Context, f store.Filter) ([]*domain.FinancialRecord, error) {
	sql := `
		SELECT record_id, user_id, kind, description, amount, currency,
		       category, record_date, period, embedding, created_ts
		FROM ` + s.table() + `
		WHERE user_id = @user_id`
	params := []bigquery.QueryParameter{
		{Name: "user_id", Value: f.UserID},
	}

	if f.Kind != "" {
		sql += ` AND kind = @kind`
		params = append(params, bigquery.QueryParameter{Name: "kind", Value: string(f.Kind)})
	}
	if f.Category != "" {
		sql += ` AND category = @category`
		params = append(params, bigquery.QueryParameter{Name: "category", Value: f.Category})
	}
	if f.Period != "" {
		sql += ` AND period = @period`
		params = append(params, bigquery.QueryParameter{Name: "period", Value: f.Period})
	}
	if !f.Start.IsZero() {
		sql += ` AND record_date >= @start_date`
		params = append(params, bigquery.QueryParameter{Name: "start_date", Value: civil.DateOf(f.Start)})
	}
	if !f.End.IsZero() {
		sql += ` AND record_date <= @end_date`
		params = append(params, bigquery.QueryParameter{Name: "end_date", Value: civil.DateOf(f.End)})
	}
	if f.MinAmount != nil {
		sql += ` AND amount >= @min_amount`
		params = append(params, bigquery.QueryParameter{Name: "min_amount", Value: *f.MinAmount})
	}
	if f.MaxAmount != nil {
		sql += ` AND amount <= @max_amount`
		params = append(params, bigquery.QueryParameter{Name: "max_amount", Value: *f.MaxAmount})
	}

	sql += ` ORDER BY record_date DESC, created_ts DESC`
	if f.Limit > 0 {
		sql += ` LIMIT @row_limit`
		params = append(params, bigquery.QueryParameter{Name: "row_limit", Value: int64(f.Limit)})
	}

	q := s.client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRecords: query read: %w", err)
	}

	var result []*domain.FinancialRecord
	for {
		var r RecordRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRecords: iter next: %w", err)
		}
		result = append(result, fromRow(&r))
	}
	return result, nil
}

// DeleteRecords implements the Store interface with a single DML delete
// over the id set.
func (s *Store) DeleteRecords(ctx context.Context, userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	q := s.client.Query(`
		DELETE FROM ` + s.table() + `
		WHERE user_id = @user_id AND record_id IN UNNEST(@record_ids)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "record_ids", Value: ids},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("DeleteRecords: run query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("DeleteRecords: wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("DeleteRecords: job error: %w", err)
	}
	// Rows can disappear between listing and deleting, so the count comes
	// from the DML statistics rather than the id set.
	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return int(qs.NumDMLAffectedRows), nil
		}
	}
	return len(ids), nil
}

// UpsertPeriodRecord implements the Store interface with a MERGE keyed by
// (user, kind, period, category).
func (s *Store) UpsertPeriodRecord(ctx context.Context, rec *domain.FinancialRecord) error {
	row := toRow(rec)

	q := s.client.Query(`
		MERGE ` + s.table() + ` t
		USING (SELECT @user_id AS user_id, @kind AS kind, @period AS period, @category AS category) src
		ON t.user_id = src.user_id AND t.kind = src.kind
		   AND t.period = src.period AND t.category = src.category
		WHEN MATCHED THEN UPDATE SET
			amount = @amount,
			currency = @currency,
			description = @description,
			record_date = @record_date
		WHEN NOT MATCHED THEN INSERT (
			record_id, user_id, kind, description, amount, currency,
			category, record_date, period, created_ts
		) VALUES (
			@record_id, @user_id, @kind, @description, @amount, @currency,
			@category, @record_date, @period, @created_ts
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "record_id", Value: row.RecordID},
		{Name: "user_id", Value: row.UserID},
		{Name: "kind", Value: row.Kind},
		{Name: "description", Value: row.Description},
		{Name: "amount", Value: row.Amount},
		{Name: "currency", Value: row.Currency},
		{Name: "category", Value: row.Category},
		{Name: "record_date", Value: row.RecordDate},
		{Name: "period", Value: row.Period},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("UpsertPeriodRecord: run query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("UpsertPeriodRecord: wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("UpsertPeriodRecord: job error: %w", err)
	}
	return nil
}

// NearestRecords implements the Store interface. Similarity is cosine,
// computed in SQL so the nearest-neighbor work stays in the store.
func (s *Store) NearestRecords(ctx context.Context, embedding []float32, k int, f store.Filter) ([]store.ScoredRecord, error) {
	query := make([]float64, len(embedding))
	for i, v := range embedding {
		query[i] = float64(v)
	}

	sql := `
		SELECT record_id, user_id, kind, description, amount, currency,
		       category, record_date, period, created_ts,
		       1 - ML.DISTANCE(embedding, @query_embedding, 'COSINE') AS similarity
		FROM ` + s.table() + `
		WHERE user_id = @user_id AND ARRAY_LENGTH(embedding) > 0`
	params := []bigquery.QueryParameter{
		{Name: "user_id", Value: f.UserID},
		{Name: "query_embedding", Value: query},
	}

	if f.Kind != "" {
		sql += ` AND kind = @kind`
		params = append(params, bigquery.QueryParameter{Name: "kind", Value: string(f.Kind)})
	}
	if f.Category != "" {
		sql += ` AND category = @category`
		params = append(params, bigquery.QueryParameter{Name: "category", Value: f.Category})
	}
	if !f.Start.IsZero() {
		sql += ` AND record_date >= @start_date`
		params = append(params, bigquery.QueryParameter{Name: "start_date", Value: civil.DateOf(f.Start)})
	}
	if !f.End.IsZero() {
		sql += ` AND record_date <= @end_date`
		params = append(params, bigquery.QueryParameter{Name: "end_date", Value: civil.DateOf(f.End)})
	}

	sql += ` ORDER BY similarity DESC LIMIT @row_limit`
	if k <= 0 {
		k = 10
	}
	params = append(params, bigquery.QueryParameter{Name: "row_limit", Value: int64(k)})

	q := s.client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("NearestRecords: query read: %w", err)
	}

	type scoredRow struct {
		RecordRow
		Similarity float64 `bigquery:"similarity"`
	}

	var result []store.ScoredRecord
	for {
		var r scoredRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("NearestRecords: iter next: %w", err)
		}
		result = append(result, store.ScoredRecord{
			Record:     fromRow(&r.RecordRow),
			Similarity: r.Similarity,
		})
	}
	return result, nil
}

func toRow(rec *domain.FinancialRecord) *RecordRow {
	amount, _ := rec.Amount.Float64()
	embedding := make([]float64, len(rec.Embedding))
	for i, v := range rec.Embedding {
		embedding[i] = float64(v)
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return &RecordRow{
		RecordID:    rec.ID,
		UserID:      rec.UserID,
		Kind:        string(rec.Kind),
		Description: rec.Description,
		Amount:      amount,
		Currency:    string(rec.Currency),
		Category:    rec.Category,
		RecordDate:  civil.DateOf(rec.Date),
		Period:      rec.Period,
		Embedding:   embedding,
		CreatedTS:   created,
	}
}

func fromRow(r *RecordRow) *domain.FinancialRecord {
	embedding := make([]float32, len(r.Embedding))
	for i, v := range r.Embedding {
		embedding[i] = float32(v)
	}
	return &domain.FinancialRecord{
		ID:          r.RecordID,
		UserID:      r.UserID,
		Kind:        domain.RecordKind(r.Kind),
		Description: r.Description,
		Amount:      decimal.NewFromFloat(r.Amount),
		Currency:    domain.CurrencyCode(r.Currency),
		Category:    r.Category,
		Date:        r.RecordDate.In(time.UTC),
		Period:      r.Period,
		Embedding:   embedding,
		CreatedAt:   r.CreatedTS,
	}
}

// Ensure Store implements the interface.
var _ store.Store = (*Store)(nil)
