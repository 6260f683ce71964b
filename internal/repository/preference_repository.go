package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	archivedExamsKey   = "archived_exams"
	deletedBuiltinsKey = "deleted_builtin_exams"
)

// PreferenceRepository keeps the small durable overlay flags that modify how
// built-in exams are presented: which exam ids are archived and which
// built-in exams were deleted by an admin.
type PreferenceRepository struct {
	client *redis.Client
}

// NewPreferenceRepository constructs a PreferenceRepository.
func NewPreferenceRepository(client *redis.Client) *PreferenceRepository {
	return &PreferenceRepository{client: client}
}

// ArchivedExamIDs returns the set of archived exam ids.
func (r *PreferenceRepository) ArchivedExamIDs(ctx context.Context) (map[string]bool, error) {
	return r.members(ctx, archivedExamsKey)
}

// ToggleArchived flips the archived flag of one exam and reports the new
// state (true when the exam is archived after the call).
func (r *PreferenceRepository) ToggleArchived(ctx context.Context, examID string) (bool, error) {
	exists, err := r.client.SIsMember(ctx, archivedExamsKey, examID).Result()
	if err != nil {
		return false, fmt.Errorf("check archived flag: %w", err)
	}
	if exists {
		if err := r.client.SRem(ctx, archivedExamsKey, examID).Err(); err != nil {
			return false, fmt.Errorf("clear archived flag: %w", err)
		}
		return false, nil
	}
	if err := r.client.SAdd(ctx, archivedExamsKey, examID).Err(); err != nil {
		return false, fmt.Errorf("set archived flag: %w", err)
	}
	return true, nil
}

// SetArchived forces the archived flag of one exam to the given state.
func (r *PreferenceRepository) SetArchived(ctx context.Context, examID string, archived bool) error {
	var err error
	if archived {
		err = r.client.SAdd(ctx, archivedExamsKey, examID).Err()
	} else {
		err = r.client.SRem(ctx, archivedExamsKey, examID).Err()
	}
	if err != nil {
		return fmt.Errorf("set archived flag: %w", err)
	}
	return nil
}

// DeletedBuiltinIDs returns the set of deleted built-in exam ids.
func (r *PreferenceRepository) DeletedBuiltinIDs(ctx context.Context) (map[string]bool, error) {
	return r.members(ctx, deletedBuiltinsKey)
}

// MarkBuiltinDeleted records that a built-in exam was deleted. The catalog
// entry itself stays in the binary; the flag hides it.
func (r *PreferenceRepository) MarkBuiltinDeleted(ctx context.Context, examID string) error {
	if err := r.client.SAdd(ctx, deletedBuiltinsKey, examID).Err(); err != nil {
		return fmt.Errorf("mark builtin deleted: %w", err)
	}
	return nil
}

func (r *PreferenceRepository) members(ctx context.Context, key string) (map[string]bool, error) {
	ids, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
