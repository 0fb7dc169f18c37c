// Package echo exposes the authentication service over HTTP.
package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/laundryhub/laundryhub-auth/domain"
	autherrors "github.com/laundryhub/laundryhub-auth/errors"
	"github.com/laundryhub/laundryhub-auth/internal/federation"
	"github.com/laundryhub/laundryhub-auth/middleware"
	"github.com/laundryhub/laundryhub-auth/services"
)

// AuthAPI struct to hold dependencies.
type AuthAPI struct {
	auth         *services.AuthService
	tokens       *services.TokenService
	federation   *services.FederationService
	relay        *services.RelayService
	registration *services.RegistrationService
	providers    *federation.Registry
}

// NewAuthAPI initializes the authentication API.
func NewAuthAPI(
	auth *services.AuthService,
	tokens *services.TokenService,
	federationSvc *services.FederationService,
	relay *services.RelayService,
	registration *services.RegistrationService,
	providers *federation.Registry,
) *AuthAPI {
	return &AuthAPI{
		auth:         auth,
		tokens:       tokens,
		federation:   federationSvc,
		relay:        relay,
		registration: registration,
		providers:    providers,
	}
}

// RegisterRoutes registers the authentication routes.
func (a *AuthAPI) RegisterRoutes(e *echo.Echo) {
	bearer := middleware.Bearer(a.auth, a.tokens)
	full := middleware.RequireFullAccess()

	for _, role := range domain.AllRoles {
		e.POST("/auth/"+string(role)+"/login", a.LoginHandler(role))
	}
	e.POST("/auth/refresh", a.RefreshHandler)
	e.POST("/auth/logout", a.LogoutHandler, bearer)
	e.GET("/auth/verify", a.VerifyHandler, bearer, full)
	e.POST("/auth/change-password", a.ChangePasswordHandler, bearer)
	e.POST("/auth/forgot-password", a.ForgotPasswordHandler)
	e.POST("/auth/reset-password", a.ResetPasswordHandler)

	e.GET("/auth/oauth/:provider/:role", a.OAuthStartHandler)
	e.GET("/auth/oauth/:provider/callback", a.OAuthCallbackHandler)
	e.POST("/auth/social/:role/complete", a.SocialCompleteHandler)
	e.GET("/auth/poll-session/:sessionId", a.PollSessionHandler)
}

type loginRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	RefreshToken string `json:"refreshToken"`
}

// LoginHandler builds the password login handler for one role.
func (a *AuthAPI) LoginHandler(role domain.Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req loginRequest
		if err := c.Bind(&req); err != nil {
			return respondError(c, autherrors.NewValidationFailed("invalid request body"))
		}
		identifier := req.Username
		if identifier == "" {
			identifier = req.Email
		}
		if identifier == "" || req.Password == "" {
			return respondError(c, autherrors.NewAuthenticationFailed())
		}

		result, err := a.auth.Login(c.Request().Context(), role, identifier, req.Password, c.RealIP())
		if err != nil {
			return respondError(c, err)
		}
		return respondLogin(c, result)
	}
}

// RefreshHandler rotates a refresh token.
func (a *AuthAPI) RefreshHandler(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return respondError(c, autherrors.NewRefreshTokenInvalid())
	}
	result, err := a.auth.Rotate(c.Request().Context(), req.RefreshToken, c.RealIP())
	if err != nil {
		return respondError(c, err)
	}
	return respondLogin(c, result)
}

// LogoutHandler retires the presented access token and, when the body
// names one, the caller's refresh token.
func (a *AuthAPI) LogoutHandler(c echo.Context) error {
	var req loginRequest
	_ = c.Bind(&req)

	claims := middleware.ClaimsFrom(c)
	raw := middleware.RawTokenFrom(c)
	if err := a.auth.Logout(c.Request().Context(), claims, raw, req.RefreshToken, c.RealIP()); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out",
	})
}

// VerifyHandler confirms a token is valid and echoes its identity.
func (a *AuthAPI) VerifyHandler(c echo.Context) error {
	claims := middleware.ClaimsFrom(c)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"role":    claims.Role,
		"userId":  claims.Subject,
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePasswordHandler replaces the caller's password. This is the
// only protected route a restricted token may reach.
func (a *AuthAPI) ChangePasswordHandler(c echo.Context) error {
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil || req.CurrentPassword == "" || req.NewPassword == "" {
		return respondError(c, autherrors.NewValidationFailed("current and new password are required"))
	}

	claims := middleware.ClaimsFrom(c)
	raw := middleware.RawTokenFrom(c)
	result, err := a.auth.ChangePassword(c.Request().Context(), claims, raw, req.CurrentPassword, req.NewPassword, c.RealIP())
	if err != nil {
		return respondError(c, err)
	}
	return respondLogin(c, result)
}

type passwordResetRequest struct {
	Role        string `json:"role"`
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// ForgotPasswordHandler mails a reset link. The answer is identical
// whether or not the address matches an account.
func (a *AuthAPI) ForgotPasswordHandler(c echo.Context) error {
	var req passwordResetRequest
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return respondError(c, autherrors.NewValidationFailed("email is required"))
	}
	role, ok := domain.ParseRole(req.Role)
	if !ok {
		return respondError(c, autherrors.NewValidationFailed("unknown role"))
	}
	if err := a.auth.ForgotPassword(c.Request().Context(), role, req.Email); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "If the email is registered, a reset link has been sent",
	})
}

// ResetPasswordHandler redeems a reset token.
func (a *AuthAPI) ResetPasswordHandler(c echo.Context) error {
	var req passwordResetRequest
	if err := c.Bind(&req); err != nil || req.Token == "" || req.NewPassword == "" {
		return respondError(c, autherrors.NewValidationFailed("token and new password are required"))
	}
	if err := a.auth.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password has been reset",
	})
}

// respondLogin shapes the success payload for login, refresh, change
// password, and social completion.
func respondLogin(c echo.Context, result *services.LoginResult) error {
	payload := map[string]interface{}{
		"success":   true,
		"token":     result.Pair.AccessToken,
		"expiresIn": result.Pair.ExpiresIn,
	}
	if result.Pair.RefreshToken != "" {
		payload["refreshToken"] = result.Pair.RefreshToken
	}
	if result.Pair.PasswordChangeRequired {
		payload["passwordChangeRequired"] = true
	}
	if result.Account != nil {
		payload["account"] = result.Account.Profile()
	}
	return c.JSON(http.StatusOK, payload)
}

// respondError maps service errors onto the wire shape. Anything not
// a typed auth error is logged and collapses to a generic 500.
func respondError(c echo.Context, err error) error {
	var authErr *autherrors.AuthError
	if !errors.As(err, &authErr) {
		log.Error().Err(err).Str("path", c.Path()).Msg("unhandled handler error")
		authErr = autherrors.NewServerError()
	}
	return c.JSON(authErr.Status, map[string]interface{}{
		"success": false,
		"message": authErr.Message,
	})
}
