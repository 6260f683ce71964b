package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/examportal/exam-portal-api/internal/models"
	appErrors "github.com/examportal/exam-portal-api/pkg/errors"
)

type resultStore interface {
	Create(ctx context.Context, result *models.Result) error
	GetByID(ctx context.Context, id string) (*models.Result, error)
	ListAll(ctx context.Context) ([]models.Result, error)
	ListByUser(ctx context.Context, userName string) ([]models.Result, error)
	ListByKeys(ctx context.Context, keys []models.ExamKey) ([]models.Result, error)
	DeleteByKeys(ctx context.Context, keys []models.ExamKey) (int, error)
	Count(ctx context.Context) (int, error)
	UniqueKeys(ctx context.Context) ([]models.ExamKey, error)
}

// ResultService reads and maintains the append-only attempt history.
type ResultService struct {
	results resultStore
	logger  *zap.Logger
}

// NewResultService constructs a ResultService.
func NewResultService(results resultStore, logger *zap.Logger) *ResultService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{results: results, logger: logger}
}

// ListResults returns the whole history, newest first.
func (s *ResultService) ListResults(ctx context.Context) ([]models.Result, error) {
	results, err := s.results.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list results")
	}
	return results, nil
}

// ListResultsForUser returns one user's history, newest first.
func (s *ResultService) ListResultsForUser(ctx context.Context, userName string) ([]models.Result, error) {
	results, err := s.results.ListByUser(ctx, userName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list results")
	}
	return results, nil
}

// ListResultsByKeys returns the history scoped to the given boundary-form
// keys ("{year}-{subject}"), newest first.
func (s *ResultService) ListResultsByKeys(ctx context.Context, rawKeys []string) ([]models.Result, error) {
	keys, err := parseKeys(rawKeys)
	if err != nil {
		return nil, err
	}
	results, err := s.results.ListByKeys(ctx, keys)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list results")
	}
	return results, nil
}

// GetResult fetches one result by id.
func (s *ResultService) GetResult(ctx context.Context, id string) (*models.Result, error) {
	result, err := s.results.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("result %s not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load result")
	}
	return result, nil
}

// Count returns the size of the history.
func (s *ResultService) Count(ctx context.Context) (int, error) {
	total, err := s.results.Count(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to count results")
	}
	return total, nil
}

// UniqueKeys returns the distinct exam keys present in the history.
func (s *ResultService) UniqueKeys(ctx context.Context) ([]models.ExamKey, error) {
	keys, err := s.results.UniqueKeys(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list result keys")
	}
	return keys, nil
}

// DeleteByKeys removes every result matching the given boundary-form keys
// ("{year}-{subject}") and reports how many went away.
func (s *ResultService) DeleteByKeys(ctx context.Context, rawKeys []string) (int, error) {
	keys, err := parseKeys(rawKeys)
	if err != nil {
		return 0, err
	}
	deleted, err := s.results.DeleteByKeys(ctx, keys)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to delete results")
	}
	s.logger.Info("results deleted", zap.Int("count", deleted), zap.Strings("keys", rawKeys))
	return deleted, nil
}

func parseKeys(rawKeys []string) ([]models.ExamKey, error) {
	keys := make([]models.ExamKey, 0, len(rawKeys))
	for _, raw := range rawKeys {
		key, err := models.ParseExamKey(raw)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid exam key %q", raw))
		}
		keys = append(keys, key)
	}
	return keys, nil
}
