package repository

import (
	"context"

	"campuslink/internal/domain/entity"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.UserProfile) error
	GetByID(ctx context.Context, id string) (*entity.UserProfile, error)
	ListExcept(ctx context.Context, userID string) ([]*entity.UserProfile, error)
}
