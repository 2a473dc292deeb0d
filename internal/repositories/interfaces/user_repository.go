package interfaces

import (
	"context"

	"swiftride/internal/models"
)

type UserRepository interface {
	GetByUID(ctx context.Context, uid string) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) error
}
