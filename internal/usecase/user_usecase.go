package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/DRSN-tech/ecofinds/internal/domain"
	"github.com/DRSN-tech/ecofinds/pkg/e"
)

type UserUseCase struct {
	userRepo UserRepository
	tokens   TokenManager
}

func NewUserUC(userRepo UserRepository, tokens TokenManager) *UserUseCase {
	return &UserUseCase{userRepo: userRepo, tokens: tokens}
}

func (u *UserUseCase) GetProfile(ctx context.Context, userID int64) (*domain.User, error) {
	const op = "UserUseCase.GetProfile"

	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	return user, nil
}

// UpdateProfile меняет только переданные поля. Занятый другим пользователем email: ErrEmailTaken.
func (u *UserUseCase) UpdateProfile(ctx context.Context, req *UpdateProfileReq) (*domain.User, error) {
	const op = "UserUseCase.UpdateProfile"

	user, err := u.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			return nil, e.Wrap(op, e.ErrMissingFields)
		}
		user.Username = username
	}

	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if email == "" {
			return nil, e.Wrap(op, e.ErrMissingFields)
		}
		if email != user.Email {
			other, err := u.userRepo.GetByEmail(ctx, email)
			switch {
			case err == nil && other.ID != user.ID:
				return nil, e.Wrap(op, e.ErrEmailTaken)
			case err != nil && !errors.Is(err, e.ErrUserNotFound):
				return nil, e.Wrap(op, err)
			}
			user.Email = email
		}
	}

	if req.Password != nil && *req.Password != "" {
		hash, err := u.tokens.HashPassword(*req.Password)
		if err != nil {
			return nil, e.Wrap(op, err)
		}
		user.PasswordHash = hash
	}

	updated, err := u.userRepo.Update(ctx, user)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	return updated, nil
}
