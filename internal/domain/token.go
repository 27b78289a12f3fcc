package domain

// TokenClaims represents verified access token claims
type TokenClaims struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Exp      int64  `json:"exp"`
	Iat      int64  `json:"iat"`
}

// TokenPair represents a freshly issued access/refresh pair
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Identity converts verified claims into the caller identity
func (tc TokenClaims) Identity() Identity {
	return Identity{
		UserID:   tc.UserID,
		Username: tc.Username,
		Email:    tc.Email,
	}
}
