package service

import (
	"fmt"

	"github.com/prperemyshlev/videotube-users/internal/domain"
)

// issueTokens generates a fresh access/refresh pair for the user.
// Persisting the refresh token is left to the caller so login and refresh can store it differently.
func (s *userService) issueTokens(user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.tokens.IssueRefreshToken(user.ID.Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
