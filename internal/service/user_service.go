package service

import (
	"context"
	"errors"
	"strings"

	"github.com/prperemyshlev/videotube-users/internal/domain"
	"github.com/prperemyshlev/videotube-users/internal/dto"
	"github.com/prperemyshlev/videotube-users/internal/events"
	"github.com/prperemyshlev/videotube-users/internal/media"
	"github.com/prperemyshlev/videotube-users/internal/repository"
	"github.com/prperemyshlev/videotube-users/internal/utils"
	"go.uber.org/zap"
)

const (
	avatarFolder = "avatars"
	coverFolder  = "covers"
)

// UserServiceOptions holds tunables that come from configuration
type UserServiceOptions struct {
	BCryptCost int
	AvatarSize int
}

// userService implements UserService interface
type userService struct {
	users     repository.UserRepository
	tokens    TokenManager
	uploader  MediaUploader
	publisher events.Publisher
	metrics   *Metrics
	logger    *zap.Logger
	opts      UserServiceOptions
}

// NewUserService creates a new user service
func NewUserService(
	users repository.UserRepository,
	tokens TokenManager,
	uploader MediaUploader,
	publisher events.Publisher,
	metrics *Metrics,
	logger *zap.Logger,
	opts UserServiceOptions,
) UserService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &userService{
		users:     users,
		tokens:    tokens,
		uploader:  uploader,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		opts:      opts,
	}
}

// Register creates an account. The avatar is mandatory, the cover image is best effort.
func (s *userService) Register(ctx context.Context, req *dto.RegisterRequest, avatarPath, coverImagePath string) (user *domain.User, err error) {
	defer func() { s.metrics.recordRegistration(ctx, err) }()

	if utils.AnyBlank(req.Username, req.Email, req.FullName, req.Password) {
		return nil, domain.Validation("All fields are required")
	}

	username := utils.NormalizeUsername(req.Username)
	email := utils.SanitizeEmail(req.Email)
	if !utils.ValidateEmail(email) {
		return nil, domain.Validation("Invalid email format")
	}

	if avatarPath == "" {
		return nil, domain.Validation("Avatar file is required")
	}

	_, err = s.users.FindByUsernameOrEmail(ctx, username, email)
	if err == nil {
		return nil, domain.Conflict("User with email or username already exists")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Internal("Failed to check existing users", err)
	}

	avatar, err := s.uploader.Upload(ctx, avatarPath, media.UploadOptions{Folder: avatarFolder, Square: s.opts.AvatarSize})
	if err != nil {
		return nil, uploadError("Failed to upload avatar", err)
	}
	if avatar == nil || avatar.URL == "" {
		return nil, domain.Upload("Failed to upload avatar", nil)
	}

	uploaded := []string{avatar.Key}
	coverURL := ""
	if coverImagePath != "" {
		cover, uploadErr := s.uploader.Upload(ctx, coverImagePath, media.UploadOptions{Folder: coverFolder})
		if uploadErr != nil {
			s.logger.Warn("cover image upload failed, continuing without it",
				zap.String("username", username), zap.Error(uploadErr))
		} else if cover != nil {
			coverURL = cover.URL
			uploaded = append(uploaded, cover.Key)
		}
	}

	passwordHash, err := utils.HashPassword(req.Password, s.opts.BCryptCost)
	if err != nil {
		s.discardUploads(ctx, uploaded...)
		return nil, domain.Internal("Failed to hash password", err)
	}

	user = &domain.User{
		Username:     username,
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		Avatar:       avatar.URL,
		CoverImage:   coverURL,
		PasswordHash: passwordHash,
	}

	if err = s.users.Create(ctx, user); err != nil {
		s.discardUploads(ctx, uploaded...)
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, domain.Conflict("User with email or username already exists")
		}
		return nil, domain.Internal("Something went wrong while registering the user", err)
	}

	s.publish(ctx, events.New(events.UserRegistered, user.ID.Hex(), user.Username))

	return user.Sanitized(), nil
}

// Login verifies credentials and starts a session, replacing any previous refresh token
func (s *userService) Login(ctx context.Context, req *dto.LoginRequest) (resp *dto.LoginResponse, err error) {
	defer func() { s.metrics.recordLogin(ctx, err) }()

	username := utils.NormalizeUsername(req.Username)
	email := utils.SanitizeEmail(req.Email)
	if username == "" && email == "" {
		return nil, domain.Validation("username or email is required")
	}
	if req.Password == "" {
		return nil, domain.Validation("Password is required")
	}

	user, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("User does not exist")
		}
		return nil, domain.Internal("Failed to look up user", err)
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, domain.Unauthorized("Invalid user credentials")
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, domain.Internal("Something went wrong while generating tokens", err)
	}

	if err = s.users.SetRefreshToken(ctx, user.ID.Hex(), pair.RefreshToken); err != nil {
		return nil, domain.Internal("Something went wrong while generating tokens", err)
	}

	return &dto.LoginResponse{
		User:         user.Sanitized(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Logout clears the stored refresh token. Calling it twice is not an error.
func (s *userService) Logout(ctx context.Context, identity domain.Identity) error {
	err := s.users.SetRefreshToken(ctx, identity.UserID, "")
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return domain.Internal("Failed to log out", err)
	}
	return nil
}

// RefreshAccessToken rotates the pair. Only the currently stored refresh token is accepted.
func (s *userService) RefreshAccessToken(ctx context.Context, refreshToken string) (pair *domain.TokenPair, err error) {
	defer func() { s.metrics.recordRefresh(ctx, err) }()

	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, domain.Unauthorized("Unauthorized request")
	}

	userID, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, domain.Unauthorized("Invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Unauthorized("Invalid refresh token")
		}
		return nil, domain.Internal("Failed to look up user", err)
	}

	if user.RefreshToken != refreshToken {
		return nil, domain.Unauthorized("Refresh token is expired or invalid")
	}

	pair, err = s.issueTokens(user)
	if err != nil {
		return nil, domain.Internal("Something went wrong while generating tokens", err)
	}

	if err = s.users.RotateRefreshToken(ctx, userID, refreshToken, pair.RefreshToken); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Unauthorized("Refresh token is expired or invalid")
		}
		return nil, domain.Internal("Something went wrong while generating tokens", err)
	}

	return pair, nil
}

// ChangePassword re-hashes the password. Existing sessions keep their refresh token.
func (s *userService) ChangePassword(ctx context.Context, identity domain.Identity, req *dto.ChangePasswordRequest) error {
	if req.OldPassword == "" || req.NewPassword == "" {
		return domain.Validation("Old and new password are required")
	}

	user, err := s.loadUser(ctx, identity)
	if err != nil {
		return err
	}

	if !utils.CheckPasswordHash(req.OldPassword, user.PasswordHash) {
		return domain.Unauthorized("Invalid old password")
	}

	passwordHash, err := utils.HashPassword(req.NewPassword, s.opts.BCryptCost)
	if err != nil {
		return domain.Internal("Failed to hash password", err)
	}

	if err := s.users.UpdatePassword(ctx, identity.UserID, passwordHash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Unauthorized("Invalid access token")
		}
		return domain.Internal("Failed to update password", err)
	}

	s.publish(ctx, events.New(events.UserPasswordChanged, identity.UserID, user.Username))

	return nil
}

// GetCurrentUser returns the caller's account
func (s *userService) GetCurrentUser(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	user, err := s.loadUser(ctx, identity)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

// UpdateAccountDetails replaces fullName and email
func (s *userService) UpdateAccountDetails(ctx context.Context, identity domain.Identity, req *dto.UpdateAccountRequest) (*domain.User, error) {
	if utils.AnyBlank(req.FullName, req.Email) {
		return nil, domain.Validation("All fields are required")
	}

	email := utils.SanitizeEmail(req.Email)
	if !utils.ValidateEmail(email) {
		return nil, domain.Validation("Invalid email format")
	}

	user, err := s.users.UpdateDetails(ctx, identity.UserID, strings.TrimSpace(req.FullName), email)
	if err != nil {
		return nil, s.mapUpdateError(err)
	}

	event := events.New(events.UserProfileUpdated, identity.UserID, user.Username)
	event.Attributes = map[string]any{"fields": []string{"fullName", "email"}}
	s.publish(ctx, event)

	return user.Sanitized(), nil
}

// UpdateAvatar uploads a new square avatar and stores its URL
func (s *userService) UpdateAvatar(ctx context.Context, identity domain.Identity, localPath string) (*domain.User, error) {
	if localPath == "" {
		return nil, domain.Validation("Avatar file is missing")
	}

	uploaded, err := s.uploader.Upload(ctx, localPath, media.UploadOptions{Folder: avatarFolder, Square: s.opts.AvatarSize})
	if err != nil {
		return nil, uploadError("Error while uploading avatar", err)
	}
	if uploaded == nil || uploaded.URL == "" {
		return nil, domain.Upload("Error while uploading avatar", nil)
	}

	user, err := s.users.UpdateAvatar(ctx, identity.UserID, uploaded.URL)
	if err != nil {
		s.discardUploads(ctx, uploaded.Key)
		return nil, s.mapUpdateError(err)
	}

	s.publishImageChange(ctx, user, "avatar")

	return user.Sanitized(), nil
}

// UpdateCoverImage uploads a new cover image and stores its URL
func (s *userService) UpdateCoverImage(ctx context.Context, identity domain.Identity, localPath string) (*domain.User, error) {
	if localPath == "" {
		return nil, domain.Validation("Cover image file is missing")
	}

	uploaded, err := s.uploader.Upload(ctx, localPath, media.UploadOptions{Folder: coverFolder})
	if err != nil {
		return nil, uploadError("Error while uploading cover image", err)
	}
	if uploaded == nil || uploaded.URL == "" {
		return nil, domain.Upload("Error while uploading cover image", nil)
	}

	user, err := s.users.UpdateCoverImage(ctx, identity.UserID, uploaded.URL)
	if err != nil {
		s.discardUploads(ctx, uploaded.Key)
		return nil, s.mapUpdateError(err)
	}

	s.publishImageChange(ctx, user, "coverImage")

	return user.Sanitized(), nil
}

func (s *userService) loadUser(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Unauthorized("Invalid access token")
		}
		return nil, domain.Internal("Failed to look up user", err)
	}
	return user, nil
}

func (s *userService) mapUpdateError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return domain.Unauthorized("Invalid access token")
	case errors.Is(err, repository.ErrDuplicateKey):
		return domain.Conflict("User with this email already exists")
	default:
		return domain.Internal("Failed to update account", err)
	}
}

// uploadError reports rejected files as a client error and anything else as a media host failure
func uploadError(message string, err error) error {
	switch {
	case errors.Is(err, media.ErrInvalidImageType):
		return domain.Validation("File must be a JPEG, PNG, GIF or WebP image")
	case errors.Is(err, media.ErrFileTooLarge):
		return domain.Validation("File is too large")
	default:
		return domain.Upload(message, err)
	}
}

// discardUploads removes objects whose owning write failed; a failed delete leaves
// the key in the log for manual cleanup.
func (s *userService) discardUploads(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.uploader.Delete(context.WithoutCancel(ctx), key); err != nil {
			s.logger.Error("failed to delete orphaned upload", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *userService) publishImageChange(ctx context.Context, user *domain.User, field string) {
	event := events.New(events.UserProfileUpdated, user.ID.Hex(), user.Username)
	event.Attributes = map[string]any{"fields": []string{field}}
	s.publish(ctx, event)
}

// publish never fails the request; the account change is already committed.
func (s *userService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("type", event.Type), zap.String("user_id", event.UserID), zap.Error(err))
	}
}
