package service

import (
	"context"
	"errors"

	"github.com/prperemyshlev/videotube-users/internal/domain"
	"github.com/prperemyshlev/videotube-users/internal/repository"
	"github.com/prperemyshlev/videotube-users/internal/utils"
)

type profileService struct {
	profiles repository.ProfileRepository
}

// NewProfileService creates a new profile service
func NewProfileService(profiles repository.ProfileRepository) ProfileService {
	return &profileService{profiles: profiles}
}

// GetChannelProfile returns a channel's public profile with subscription counts
// and whether the requester is subscribed to it.
func (s *profileService) GetChannelProfile(ctx context.Context, username string, requester domain.Identity) (*domain.ChannelProfile, error) {
	username = utils.NormalizeUsername(username)
	if username == "" {
		return nil, domain.Validation("username is missing")
	}

	profile, err := s.profiles.ChannelProfile(ctx, username, requester.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NotFound("channel does not exist")
		}
		return nil, domain.Internal("Failed to fetch channel profile", err)
	}

	return profile, nil
}

// GetWatchHistory returns the caller's watched videos, oldest view first
func (s *profileService) GetWatchHistory(ctx context.Context, identity domain.Identity) ([]domain.WatchedVideo, error) {
	history, err := s.profiles.WatchHistory(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Unauthorized("Invalid access token")
		}
		return nil, domain.Internal("Failed to fetch watch history", err)
	}

	if history == nil {
		history = []domain.WatchedVideo{}
	}

	return history, nil
}
