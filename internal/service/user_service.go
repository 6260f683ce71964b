package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/examportal/exam-portal-api/internal/models"
	"github.com/examportal/exam-portal-api/internal/tabular"
	appErrors "github.com/examportal/exam-portal-api/pkg/errors"
)

type accountStore interface {
	List(ctx context.Context) ([]models.Account, error)
	Upsert(ctx context.Context, account *models.Account) error
}

// UserImportSummary reports the outcome of one account upload.
type UserImportSummary struct {
	UsersImported int `json:"users_imported"`
	RowsSkipped   int `json:"rows_skipped"`
}

// UserService manages bulk account provisioning.
type UserService struct {
	accounts accountStore
	logger   *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(accounts accountStore, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{accounts: accounts, logger: logger}
}

// ListAccounts returns every provisioned account without password hashes.
func (s *UserService) ListAccounts(ctx context.Context) ([]models.AccountInfo, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list accounts")
	}
	infos := make([]models.AccountInfo, 0, len(accounts))
	for _, account := range accounts {
		infos = append(infos, models.AccountInfo{Username: account.Username, Name: account.Name, Role: account.Role})
	}
	return infos, nil
}

// ImportUsers decodes an account upload and upserts every valid row,
// hashing passwords before they touch the store. Rows without a username or
// password are dropped; existing accounts with the same username are
// replaced.
func (s *UserService) ImportUsers(ctx context.Context, payload []byte) (*UserImportSummary, error) {
	rows, err := tabular.ParseWorkbook(payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrFormat.Code, appErrors.ErrFormat.Status, "unreadable spreadsheet")
	}

	users := tabular.DecodeUserRows(rows)
	summary := &UserImportSummary{RowsSkipped: len(rows) - len(users)}

	for _, user := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		role := user.Role
		if role != models.RoleAdmin && role != models.RoleStudent {
			role = models.RoleStudent
		}
		account := &models.Account{
			Username:     user.Username,
			PasswordHash: string(hash),
			Name:         user.Name,
			Role:         role,
		}
		if err := s.accounts.Upsert(ctx, account); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to store account")
		}
		summary.UsersImported++
	}

	s.logger.Info("user import finished",
		zap.Int("imported", summary.UsersImported),
		zap.Int("skipped", summary.RowsSkipped))
	return summary, nil
}
