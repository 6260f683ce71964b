package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/examportal/exam-portal-api/internal/models"
	appErrors "github.com/examportal/exam-portal-api/pkg/errors"
)

type authAccountRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	TokenSecret string
	TokenExpiry time.Duration
	Issuer      string

	// Failsafe credentials authenticate even when the account store is
	// empty or unreachable, so a fresh deployment is never locked out.
	FailsafeUsername string
	FailsafePassword string
	FailsafeName     string
}

// AuthService provides authentication use cases.
type AuthService struct {
	accounts  authAccountRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(accounts authAccountRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{accounts: accounts, validator: validate, logger: logger, config: config}
}

// Login authenticates an account and returns an issued token. When the
// stored credentials do not match, or the store itself fails, the failsafe
// administrator credentials are checked before rejecting.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	account, err := s.accounts.FindByUsername(ctx, req.Username)
	switch {
	case err == nil:
		if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) == nil {
			return s.issue(account)
		}
	case errors.Is(err, sql.ErrNoRows):
		// fall through to failsafe
	default:
		s.logger.Warn("account store unreachable during login", zap.Error(err))
	}

	if failsafe := s.failsafeAccount(req); failsafe != nil {
		s.logger.Info("failsafe administrator login", zap.String("username", failsafe.Username))
		return s.issue(failsafe)
	}

	return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid username or password")
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) failsafeAccount(req models.LoginRequest) *models.Account {
	if s.config.FailsafeUsername == "" {
		return nil
	}
	if req.Username != s.config.FailsafeUsername || req.Password != s.config.FailsafePassword {
		return nil
	}
	name := s.config.FailsafeName
	if name == "" {
		name = "Administrator"
	}
	return &models.Account{
		Username: s.config.FailsafeUsername,
		Name:     name,
		Role:     models.RoleAdmin,
	}
}

func (s *AuthService) issue(account *models.Account) (*models.LoginResponse, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.TokenExpiry)
	claims := &models.JWTClaims{
		Username: account.Username,
		Name:     account.Name,
		Role:     account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   account.Username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.TokenSecret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	return &models.LoginResponse{
		AccessToken: signed,
		ExpiresIn:   int64(s.config.TokenExpiry.Seconds()),
		IssuedAt:    issuedAt,
		Account: models.AccountInfo{
			Username: account.Username,
			Name:     account.Name,
			Role:     account.Role,
		},
	}, nil
}
