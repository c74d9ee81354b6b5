package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/pkg/e"
	"github.com/DRSN-tech/ecofinds/pkg/logger"
)

// AuthUseCase регистрирует пользователей и выдаёт токены доступа.
type AuthUseCase struct {
	userRepo UserRepository
	tokens   TokenManager
	logger   logger.Logger
}

func NewAuthUC(userRepo UserRepository, tokens TokenManager, logger logger.Logger) *AuthUseCase {
	return &AuthUseCase{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger,
	}
}

func (a *AuthUseCase) Register(ctx context.Context, req *RegisterReq) (*AuthRes, error) {
	const op = "AuthUseCase.Register"

	username := strings.TrimSpace(req.Username)
	email := normalizeEmail(req.Email)
	if username == "" || email == "" || req.Password == "" {
		return nil, e.Wrap(op, e.ErrMissingFields)
	}

	if _, err := a.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, e.Wrap(op, e.ErrEmailTaken)
	} else if !errors.Is(err, e.ErrUserNotFound) {
		return nil, e.Wrap(op, err)
	}

	hash, err := a.tokens.HashPassword(req.Password)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	user, err := a.userRepo.Create(ctx, domain.NewUser(username, email, hash))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	a.logger.Infof("user registered: id=%d", user.ID)
	return a.issue(op, user)
}

func (a *AuthUseCase) Login(ctx context.Context, req *LoginReq) (*AuthRes, error) {
	const op = "AuthUseCase.Login"

	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, e.Wrap(op, e.ErrMissingFields)
	}

	user, err := a.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, e.ErrUserNotFound) {
			return nil, e.Wrap(op, e.ErrInvalidCredentials)
		}
		return nil, e.Wrap(op, err)
	}

	if err := a.tokens.ComparePassword(user.PasswordHash, req.Password); err != nil {
		return nil, e.Wrap(op, e.ErrInvalidCredentials)
	}

	return a.issue(op, user)
}

// Authenticate возвращает ID пользователя из токена.
func (a *AuthUseCase) Authenticate(token string) (int64, error) {
	userID, err := a.tokens.ParseToken(token)
	if err != nil {
		return 0, e.Wrap("AuthUseCase.Authenticate", err)
	}
	return userID, nil
}

func (a *AuthUseCase) issue(op string, user *domain.User) (*AuthRes, error) {
	token, expiresAt, err := a.tokens.IssueToken(user.ID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return &AuthRes{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
