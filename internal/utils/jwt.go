package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prperemyshlev/videotube-users/internal/domain"
)

const refreshTokenType = "refresh"

// ErrInvalidToken is returned for any signature, type or expiry failure
var ErrInvalidToken = errors.New("invalid token")

// JWTManager issues and verifies access and refresh tokens.
// Access and refresh tokens are signed with different secrets so one can never stand in for the other.
type JWTManager struct {
	accessSecret       []byte
	refreshSecret      []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	now                func() time.Time
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(accessSecret, refreshSecret string, accessTokenExpiry, refreshTokenExpiry time.Duration) *JWTManager {
	return &JWTManager{
		accessSecret:       []byte(accessSecret),
		refreshSecret:      []byte(refreshSecret),
		accessTokenExpiry:  accessTokenExpiry,
		refreshTokenExpiry: refreshTokenExpiry,
		now:                time.Now,
	}
}

// IssueAccessToken generates a short-lived access token for the user
func (j *JWTManager) IssueAccessToken(user *domain.User) (string, error) {
	now := j.now()
	claims := jwt.MapClaims{
		"user_id":   user.ID.Hex(),
		"email":     user.Email,
		"username":  user.Username,
		"full_name": user.FullName,
		"exp":       now.Add(j.accessTokenExpiry).Unix(),
		"iat":       now.Unix(),
		"jti":       uuid.NewString(),
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.accessSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// IssueRefreshToken generates a long-lived refresh token.
// The caller must persist it as the user's only current refresh token.
func (j *JWTManager) IssueRefreshToken(userID string) (string, error) {
	now := j.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"type":    refreshTokenType,
		"exp":     now.Add(j.refreshTokenExpiry).Unix(),
		"iat":     now.Unix(),
		"jti":     uuid.NewString(),
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return tokenString, nil
}

// VerifyAccessToken validates an access token and returns its claims
func (j *JWTManager) VerifyAccessToken(tokenString string) (*domain.TokenClaims, error) {
	claims, err := j.parse(tokenString, j.accessSecret)
	if err != nil {
		return nil, err
	}

	if _, isRefresh := claims["type"]; isRefresh {
		return nil, fmt.Errorf("%w: unexpected token type", ErrInvalidToken)
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: missing exp", ErrInvalidToken)
	}

	iat, _ := claims["iat"].(float64)
	email, _ := claims["email"].(string)
	username, _ := claims["username"].(string)
	fullName, _ := claims["full_name"].(string)

	tokenClaims := &domain.TokenClaims{
		UserID:   userID,
		Email:    email,
		Username: username,
		FullName: fullName,
		Exp:      int64(exp),
		Iat:      int64(iat),
	}

	return tokenClaims, nil
}

// VerifyRefreshToken validates a refresh token and returns the user ID it was issued for.
// It does not check the token against the stored value; callers must.
func (j *JWTManager) VerifyRefreshToken(tokenString string) (string, error) {
	claims, err := j.parse(tokenString, j.refreshSecret)
	if err != nil {
		return "", err
	}

	if claims["type"] != refreshTokenType {
		return "", fmt.Errorf("%w: unexpected token type", ErrInvalidToken)
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}

	return userID, nil
}

// AccessTokenExpiry returns the access token lifetime
func (j *JWTManager) AccessTokenExpiry() time.Duration {
	return j.accessTokenExpiry
}

// RefreshTokenExpiry returns the refresh token lifetime
func (j *JWTManager) RefreshTokenExpiry() time.Duration {
	return j.refreshTokenExpiry
}

func (j *JWTManager) parse(tokenString string, secret []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(j.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}

	return claims, nil
}
