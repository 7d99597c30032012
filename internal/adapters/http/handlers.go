package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/infrastructure/config"
	"github.com/flowhq/flow/internal/infrastructure/logger"
	"github.com/flowhq/flow/internal/ports"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService ports.AuthService
	sessions    ports.SessionService
	sessionCfg  config.SessionConfig
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService ports.AuthService, sessions ports.SessionService, sessionCfg config.SessionConfig, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
		sessionCfg:  sessionCfg,
		logger:      logger,
	}
}

// Signup godoc
// @Summary Create an account
// @Description Registers a user and starts a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.SignupRequest true "Account data"
// @Success 201 {object} entities.User
// @Failure 400 {object} ports.ErrorResponse
// @Failure 409 {object} ports.ErrorResponse
// @Failure 429 {object} ports.ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req ports.SignupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Signup(c.Request().Context(), req)
	if err != nil {
		return toHTTPError(h.logger, "Signup", err)
	}

	if err := h.startSession(c, user); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// Login godoc
// @Summary Sign in
// @Description Checks credentials and starts a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.LoginRequest true "Credentials"
// @Success 200 {object} entities.User
// @Failure 400 {object} ports.ErrorResponse
// @Failure 401 {object} ports.ErrorResponse
// @Failure 429 {object} ports.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		h.logger.LogSecurityEvent("login_failed", "", c.RealIP(), map[string]interface{}{"email": req.Email})
		return toHTTPError(h.logger, "Login", err)
	}

	if err := h.startSession(c, user); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Logout godoc
// @Summary Sign out
// @Description Clears the session cookie
// @Tags auth
// @Produce json
// @Success 200 {object} ports.MessageResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	ClearSessionCookie(c, h.sessionCfg)
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Logged out successfully"})
}

func (h *AuthHandler) startSession(c echo.Context, user *entities.User) error {
	token, expiresAt, err := h.sessions.Issue(user)
	if err != nil {
		return toHTTPError(h.logger, "Issue session", err)
	}
	WriteSessionCookie(c, h.sessionCfg, token, expiresAt)
	return nil
}

// UserHandler handles the signed-in user's account
type UserHandler struct {
	userService ports.UserService
	sessionCfg  config.SessionConfig
	logger      *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService ports.UserService, sessionCfg config.SessionConfig, logger *logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		sessionCfg:  sessionCfg,
		logger:      logger,
	}
}

// GetCurrentUser godoc
// @Summary Current user
// @Tags users
// @Produce json
// @Success 200 {object} entities.User
// @Failure 401 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /users/me [get]
func (h *UserHandler) GetCurrentUser(c echo.Context) error {
	user, err := h.userService.GetProfile(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return toHTTPError(h.logger, "Get current user", err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateCurrentUser godoc
// @Summary Update profile
// @Description Changes name and avatar; an empty avatar removes it
// @Tags users
// @Accept json
// @Produce json
// @Param request body ports.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} entities.User
// @Failure 400 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /users/me [patch]
func (h *UserHandler) UpdateCurrentUser(c echo.Context) error {
	var req ports.UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.userService.UpdateProfile(c.Request().Context(), getUserIDFromContext(c), req)
	if err != nil {
		return toHTTPError(h.logger, "Update profile", err)
	}
	return c.JSON(http.StatusOK, user)
}

// ChangePassword godoc
// @Summary Change password
// @Tags users
// @Accept json
// @Produce json
// @Param request body ports.ChangePasswordRequest true "Passwords"
// @Success 200 {object} ports.MessageResponse
// @Failure 400 {object} ports.ErrorResponse
// @Security SessionCookie
// @Router /users/me/password [put]
func (h *UserHandler) ChangePassword(c echo.Context) error {
	var req ports.ChangePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.userService.ChangePassword(c.Request().Context(), getUserIDFromContext(c), req); err != nil {
		return toHTTPError(h.logger, "Change password", err)
	}
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Password updated"})
}

// CompleteOnboarding godoc
// @Summary Finish onboarding
// @Tags users
// @Produce json
// @Success 200 {object} ports.MessageResponse
// @Security SessionCookie
// @Router /users/me/onboarding [post]
func (h *UserHandler) CompleteOnboarding(c echo.Context) error {
	if err := h.userService.CompleteOnboarding(c.Request().Context(), getUserIDFromContext(c)); err != nil {
		return toHTTPError(h.logger, "Complete onboarding", err)
	}
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Onboarding completed"})
}

// DeleteAccount godoc
// @Summary Delete account
// @Description Deletes owned projects, leaves all others and ends the session
// @Tags users
// @Produce json
// @Success 200 {object} ports.MessageResponse
// @Security SessionCookie
// @Router /users/me [delete]
func (h *UserHandler) DeleteAccount(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if err := h.userService.DeleteAccount(c.Request().Context(), userID); err != nil {
		return toHTTPError(h.logger, "Delete account", err)
	}

	h.logger.LogUserAction(userID.String(), "account_deleted", nil)
	ClearSessionCookie(c, h.sessionCfg)
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Account deleted"})
}
