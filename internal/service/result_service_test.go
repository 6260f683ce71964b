package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/examportal/exam-portal-api/internal/models"
	appErrors "github.com/examportal/exam-portal-api/pkg/errors"
)

type mockResultStore struct {
	results []models.Result
	err     error
	deleted []models.ExamKey
}

func (m *mockResultStore) Create(ctx context.Context, result *models.Result) error {
	if m.err != nil {
		return m.err
	}
	m.results = append(m.results, *result)
	return nil
}

func (m *mockResultStore) GetByID(ctx context.Context, id string) (*models.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, result := range m.results {
		if result.ID == id {
			copied := result
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockResultStore) ListAll(ctx context.Context) ([]models.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *mockResultStore) ListByUser(ctx context.Context, userName string) ([]models.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.Result, 0)
	for _, result := range m.results {
		if result.UserName == userName {
			out = append(out, result)
		}
	}
	return out, nil
}

func (m *mockResultStore) ListByKeys(ctx context.Context, keys []models.ExamKey) ([]models.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.Result, 0)
	for _, result := range m.results {
		for _, key := range keys {
			if result.Key() == key {
				out = append(out, result)
				break
			}
		}
	}
	return out, nil
}

func (m *mockResultStore) DeleteByKeys(ctx context.Context, keys []models.ExamKey) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.deleted = append(m.deleted, keys...)
	kept := m.results[:0]
	deleted := 0
	for _, result := range m.results {
		match := false
		for _, key := range keys {
			if result.Key() == key {
				match = true
				break
			}
		}
		if match {
			deleted++
		} else {
			kept = append(kept, result)
		}
	}
	m.results = kept
	return deleted, nil
}

func (m *mockResultStore) Count(ctx context.Context) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return len(m.results), nil
}

func (m *mockResultStore) UniqueKeys(ctx context.Context) ([]models.ExamKey, error) {
	if m.err != nil {
		return nil, m.err
	}
	seen := make(map[models.ExamKey]bool)
	keys := make([]models.ExamKey, 0)
	for _, result := range m.results {
		key := result.Key()
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func sampleResults() []models.Result {
	now := time.Now().UTC()
	return []models.Result{
		{ID: "r1", UserName: "alice", ExamYear: 2024, Subject: "Mathematics", Score: 40, TotalQuestions: 50, Percentage: 80, Timestamp: now},
		{ID: "r2", UserName: "bob", ExamYear: 2024, Subject: "Mathematics", Score: 20, TotalQuestions: 50, Percentage: 40, Timestamp: now},
		{ID: "r3", UserName: "alice", ExamYear: 2023, Subject: "Custom Exam", Score: 1, TotalQuestions: 2, Percentage: 50, Timestamp: now},
	}
}

func TestResultServiceDeleteByKeys(t *testing.T) {
	store := &mockResultStore{results: sampleResults()}
	svc := NewResultService(store, zap.NewNop())

	deleted, err := svc.DeleteByKeys(context.Background(), []string{"2024-Mathematics"})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	remaining, err := svc.ListResults(context.Background())
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "r3", remaining[0].ID)
}

func TestResultServiceDeleteByKeysHyphenatedSubject(t *testing.T) {
	store := &mockResultStore{results: []models.Result{
		{ID: "r1", ExamYear: 2024, Subject: "Physics-Advanced", Percentage: 60},
	}}
	svc := NewResultService(store, zap.NewNop())

	deleted, err := svc.DeleteByKeys(context.Background(), []string{"2024-Physics-Advanced"})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	require.Len(t, store.deleted, 1)
	assert.Equal(t, models.ExamKey{Year: 2024, Subject: "Physics-Advanced"}, store.deleted[0])
}

func TestResultServiceDeleteByKeysInvalidKey(t *testing.T) {
	svc := NewResultService(&mockResultStore{}, zap.NewNop())

	_, err := svc.DeleteByKeys(context.Background(), []string{"not-a-year-Mathematics", ""})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestResultServiceListResultsByKeys(t *testing.T) {
	store := &mockResultStore{results: sampleResults()}
	svc := NewResultService(store, zap.NewNop())

	results, err := svc.ListResultsByKeys(context.Background(), []string{"2023-Custom Exam"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "r3", results[0].ID)

	_, err = svc.ListResultsByKeys(context.Background(), []string{"bad key"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestResultServiceGetResult(t *testing.T) {
	store := &mockResultStore{results: sampleResults()}
	svc := NewResultService(store, zap.NewNop())

	result, err := svc.GetResult(context.Background(), "r2")
	require.NoError(t, err)
	assert.Equal(t, "bob", result.UserName)

	_, err = svc.GetResult(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResultServiceUniqueKeysAndCount(t *testing.T) {
	store := &mockResultStore{results: sampleResults()}
	svc := NewResultService(store, zap.NewNop())

	keys, err := svc.UniqueKeys(context.Background())
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	count, err := svc.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
