package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/examportal/exam-portal-api/internal/models"
)

const resultColumns = `id, user_name, exam_year, subject, score, total_questions, percentage, duration_minutes, details, created_at`

// ResultRepository manages the append-only result history.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository constructs a ResultRepository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Create appends a completed attempt, stamping id and timestamp when unset.
func (r *ResultRepository) Create(ctx context.Context, result *models.Result) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO results (id, user_name, exam_year, subject, score, total_questions, percentage, duration_minutes, details, created_at)
        VALUES (:id, :user_name, :exam_year, :subject, :score, :total_questions, :percentage, :duration_minutes, :details, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("create result: %w", err)
	}
	return nil
}

// GetByID fetches one result. Returns sql.ErrNoRows when absent.
func (r *ResultRepository) GetByID(ctx context.Context, id string) (*models.Result, error) {
	query := fmt.Sprintf(`SELECT %s FROM results WHERE id = $1`, resultColumns)
	var result models.Result
	if err := r.db.GetContext(ctx, &result, query, id); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListAll returns every result, newest first.
func (r *ResultRepository) ListAll(ctx context.Context) ([]models.Result, error) {
	query := fmt.Sprintf(`SELECT %s FROM results ORDER BY created_at DESC`, resultColumns)
	var results []models.Result
	if err := r.db.SelectContext(ctx, &results, query); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}

// ListByUser returns one user's results, newest first.
func (r *ResultRepository) ListByUser(ctx context.Context, userName string) ([]models.Result, error) {
	query := fmt.Sprintf(`SELECT %s FROM results WHERE user_name = $1 ORDER BY created_at DESC`, resultColumns)
	var results []models.Result
	if err := r.db.SelectContext(ctx, &results, query, userName); err != nil {
		return nil, fmt.Errorf("list results by user: %w", err)
	}
	return results, nil
}

// ListByKeys returns every result belonging to any of the given exam keys,
// newest first. An empty key set yields an empty slice.
func (r *ResultRepository) ListByKeys(ctx context.Context, keys []models.ExamKey) ([]models.Result, error) {
	if len(keys) == 0 {
		return []models.Result{}, nil
	}
	conditions, args := keyConditions(keys)
	query := fmt.Sprintf(`SELECT %s FROM results WHERE %s ORDER BY created_at DESC`, resultColumns, conditions)
	var results []models.Result
	if err := r.db.SelectContext(ctx, &results, query, args...); err != nil {
		return nil, fmt.Errorf("list results by keys: %w", err)
	}
	return results, nil
}

// DeleteByKeys removes every result matching the given exam keys inside a
// single transaction and reports how many rows went away.
func (r *ResultRepository) DeleteByKeys(ctx context.Context, keys []models.ExamKey) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("delete results: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	deleted := 0
	for _, key := range keys {
		res, err := tx.ExecContext(ctx, `DELETE FROM results WHERE exam_year = $1 AND subject = $2`, key.Year, key.Subject)
		if err != nil {
			return 0, fmt.Errorf("delete results for %s: %w", key, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("delete results for %s: %w", key, err)
		}
		deleted += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("delete results: %w", err)
	}
	return deleted, nil
}

// Count returns the number of stored results.
func (r *ResultRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM results`); err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return total, nil
}

// UniqueKeys returns the distinct exam keys present in the history, newest
// year first.
func (r *ResultRepository) UniqueKeys(ctx context.Context) ([]models.ExamKey, error) {
	const query = `SELECT DISTINCT exam_year AS year, subject FROM results ORDER BY exam_year DESC, subject ASC`
	var keys []models.ExamKey
	if err := r.db.SelectContext(ctx, &keys, query); err != nil {
		return nil, fmt.Errorf("list result keys: %w", err)
	}
	return keys, nil
}

func keyConditions(keys []models.ExamKey) (string, []interface{}) {
	conditions := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys)*2)
	for _, key := range keys {
		conditions = append(conditions, fmt.Sprintf("(exam_year = $%d AND subject = $%d)", len(args)+1, len(args)+2))
		args = append(args, key.Year, key.Subject)
	}
	return strings.Join(conditions, " OR "), args
}
