package service

import (
	"context"

	"github.com/prperemyshlev/videotube-users/internal/domain"
	"github.com/prperemyshlev/videotube-users/internal/dto"
	"github.com/prperemyshlev/videotube-users/internal/media"
)

// UserService defines the account and session operations
type UserService interface {
	Register(ctx context.Context, req *dto.RegisterRequest, avatarPath, coverImagePath string) (*domain.User, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	Logout(ctx context.Context, identity domain.Identity) error
	RefreshAccessToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	ChangePassword(ctx context.Context, identity domain.Identity, req *dto.ChangePasswordRequest) error
	GetCurrentUser(ctx context.Context, identity domain.Identity) (*domain.User, error)
	UpdateAccountDetails(ctx context.Context, identity domain.Identity, req *dto.UpdateAccountRequest) (*domain.User, error)
	UpdateAvatar(ctx context.Context, identity domain.Identity, localPath string) (*domain.User, error)
	UpdateCoverImage(ctx context.Context, identity domain.Identity, localPath string) (*domain.User, error)
}

// ProfileService defines the channel profile and watch history reads
type ProfileService interface {
	GetChannelProfile(ctx context.Context, username string, requester domain.Identity) (*domain.ChannelProfile, error)
	GetWatchHistory(ctx context.Context, identity domain.Identity) ([]domain.WatchedVideo, error)
}

// TokenManager issues and verifies the access/refresh pair
type TokenManager interface {
	IssueAccessToken(user *domain.User) (string, error)
	IssueRefreshToken(userID string) (string, error)
	VerifyRefreshToken(token string) (string, error)
}

// MediaUploader moves a locally staged file to the media host and can remove it again
type MediaUploader interface {
	Upload(ctx context.Context, localPath string, opts media.UploadOptions) (*media.UploadResult, error)
	Delete(ctx context.Context, key string) error
}
