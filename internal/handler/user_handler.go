package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/videotube-users/internal/config"
	"github.com/prperemyshlev/videotube-users/internal/domain"
	"github.com/prperemyshlev/videotube-users/internal/dto"
	"github.com/prperemyshlev/videotube-users/internal/service"
	"go.uber.org/zap"
)

// CookieSettings controls the session cookies
type CookieSettings struct {
	config.CookieConfig
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// UserHandler handles account, session and profile requests
type UserHandler struct {
	users    service.UserService
	profiles service.ProfileService
	stager   *UploadStager
	cookies  CookieSettings
	logger   *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(
	users service.UserService,
	profiles service.ProfileService,
	stager *UploadStager,
	cookies CookieSettings,
	logger *zap.Logger,
) *UserHandler {
	return &UserHandler{
		users:    users,
		profiles: profiles,
		stager:   stager,
		cookies:  cookies,
		logger:   logger,
	}
}

// Register handles user registration
// @Summary Register a new user
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Param username formData string true "Username"
// @Param email formData string true "Email"
// @Param fullName formData string true "Full name"
// @Param password formData string true "Password"
// @Param avatar formData file true "Avatar image"
// @Param coverImage formData file false "Cover image"
// @Success 201 {object} dto.APIResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /users/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, h.logger, domain.Validation("All fields are required"))
		return
	}

	avatarPath, cleanupAvatar, err := h.stager.Stage(c, "avatar")
	defer cleanupAvatar()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	coverPath, cleanupCover, err := h.stager.Stage(c, "coverImage")
	defer cleanupCover()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), &req, avatarPath, coverPath)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusCreated, user, "User registered successfully")
}

// Login handles user login
// @Summary Log in with username or email
// @Tags users
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} dto.APIResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /users/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := bindOptional(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp, err := h.users.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.setSessionCookies(c, resp.AccessToken, resp.RefreshToken)
	respond(c, http.StatusOK, resp, "User logged in successfully")
}

// Logout handles user logout
// @Summary Log out and invalidate the refresh token
// @Tags users
// @Produce json
// @Success 200 {object} dto.APIResponse
// @Router /users/logout [post]
func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.users.Logout(c.Request.Context(), identityFrom(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.clearSessionCookies(c)
	respond(c, http.StatusOK, dto.Empty{}, "User logged out")
}

// RefreshAccessToken rotates the token pair
// @Summary Rotate access and refresh tokens
// @Tags users
// @Produce json
// @Success 200 {object} dto.APIResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /users/refresh-access-token [post]
func (h *UserHandler) RefreshAccessToken(c *gin.Context) {
	token, err := c.Cookie(refreshTokenCookie)
	if err != nil || token == "" {
		var req dto.RefreshRequest
		if err := bindOptional(c, &req); err != nil {
			respondError(c, h.logger, err)
			return
		}
		token = req.RefreshToken
	}

	pair, err := h.users.RefreshAccessToken(c.Request.Context(), token)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.setSessionCookies(c, pair.AccessToken, pair.RefreshToken)
	respond(c, http.StatusOK, pair, "Access token refreshed")
}

// ChangePassword handles password changes for the current user
// @Summary Change password
// @Tags users
// @Accept json
// @Produce json
// @Param request body dto.ChangePasswordRequest true "Old and new password"
// @Success 200 {object} dto.APIResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /users/change-password [post]
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := bindOptional(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.users.ChangePassword(c.Request.Context(), identityFrom(c), &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, dto.Empty{}, "Password changed successfully")
}

// GetCurrentUser returns the authenticated user
// @Summary Current user
// @Tags users
// @Produce json
// @Success 200 {object} dto.APIResponse
// @Router /users/current-user [get]
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	user, err := h.users.GetCurrentUser(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, user, "Current user fetched successfully")
}

// UpdateAccountDetails updates fullName and email
// @Summary Update account details
// @Tags users
// @Accept json
// @Produce json
// @Param request body dto.UpdateAccountRequest true "New details"
// @Success 200 {object} dto.APIResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /users/update-account [patch]
func (h *UserHandler) UpdateAccountDetails(c *gin.Context) {
	var req dto.UpdateAccountRequest
	if err := bindOptional(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	user, err := h.users.UpdateAccountDetails(c.Request.Context(), identityFrom(c), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, user, "Account details updated successfully")
}

// UpdateAvatar replaces the avatar image
// @Summary Update avatar
// @Tags users
// @Accept multipart/form-data
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} dto.APIResponse
// @Router /users/avatar [patch]
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	path, cleanup, err := h.stager.Stage(c, "avatar")
	defer cleanup()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	user, err := h.users.UpdateAvatar(c.Request.Context(), identityFrom(c), path)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, user, "Avatar image updated successfully")
}

// UpdateCoverImage replaces the cover image
// @Summary Update cover image
// @Tags users
// @Accept multipart/form-data
// @Param coverImage formData file true "Cover image"
// @Success 200 {object} dto.APIResponse
// @Router /users/cover-image [patch]
func (h *UserHandler) UpdateCoverImage(c *gin.Context) {
	path, cleanup, err := h.stager.Stage(c, "coverImage")
	defer cleanup()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	user, err := h.users.UpdateCoverImage(c.Request.Context(), identityFrom(c), path)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, user, "Cover image updated successfully")
}

// GetChannelProfile returns a channel's public profile
// @Summary Channel profile
// @Tags users
// @Produce json
// @Param username path string true "Channel username"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /users/c/{username} [get]
func (h *UserHandler) GetChannelProfile(c *gin.Context) {
	profile, err := h.profiles.GetChannelProfile(c.Request.Context(), c.Param("username"), identityFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, profile, "User channel fetched successfully")
}

// GetWatchHistory returns the caller's watch history
// @Summary Watch history
// @Tags users
// @Produce json
// @Success 200 {object} dto.APIResponse
// @Router /users/watch-history [get]
func (h *UserHandler) GetWatchHistory(c *gin.Context) {
	history, err := h.profiles.GetWatchHistory(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, history, "Watch history fetched successfully")
}

func (h *UserHandler) setSessionCookies(c *gin.Context, accessToken, refreshToken string) {
	h.setCookie(c, accessTokenCookie, accessToken, int(h.cookies.AccessTTL.Seconds()))
	h.setCookie(c, refreshTokenCookie, refreshToken, int(h.cookies.RefreshTTL.Seconds()))
}

func (h *UserHandler) clearSessionCookies(c *gin.Context) {
	h.setCookie(c, accessTokenCookie, "", -1)
	h.setCookie(c, refreshTokenCookie, "", -1)
}

func (h *UserHandler) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, h.cookies.Path, h.cookies.Domain, h.cookies.Secure, true)
}

// bindOptional binds JSON or form bodies; an empty body leaves req zero-valued
// so the service can report which fields are missing.
func bindOptional(c *gin.Context, req any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBind(req); err != nil && !errors.Is(err, io.EOF) {
		return domain.Validation("Invalid request body")
	}
	return nil
}
