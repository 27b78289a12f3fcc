package repository

import (
	"context"

	"github.com/prperemyshlev/videotube-users/internal/domain"
)

// UserRepository defines methods for user operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// FindByUsernameOrEmail matches either identifier; empty identifiers are ignored.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error)
	// SetRefreshToken overwrites the stored refresh token; an empty token clears it.
	SetRefreshToken(ctx context.Context, id, token string) error
	// RotateRefreshToken replaces current with next only if current is still the stored value.
	RotateRefreshToken(ctx context.Context, id, current, next string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateDetails(ctx context.Context, id, fullName, email string) (*domain.User, error)
	UpdateAvatar(ctx context.Context, id, url string) (*domain.User, error)
	UpdateCoverImage(ctx context.Context, id, url string) (*domain.User, error)
}

// ProfileRepository runs the read-model aggregations
type ProfileRepository interface {
	ChannelProfile(ctx context.Context, username, requesterID string) (*domain.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string) ([]domain.WatchedVideo, error)
}
