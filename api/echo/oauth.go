package echo

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/laundryhub/laundryhub-auth/domain"
	autherrors "github.com/laundryhub/laundryhub-auth/errors"
	"github.com/laundryhub/laundryhub-auth/services"
)

// callbackPage is what the popup window receives from the provider
// callback. The handshake result itself travels through the mailbox,
// never through this response.
const callbackPage = `<!DOCTYPE html>
<html>
<head><title>Signing in…</title></head>
<body>
<p>You can close this window.</p>
<script>window.close();</script>
</body>
</html>`

// OAuthStartHandler redirects the browser to the provider's consent
// page. Unconfigured providers and OAuth-incapable roles answer 404.
func (a *AuthAPI) OAuthStartHandler(c echo.Context) error {
	role, ok := domain.ParseRole(c.Param("role"))
	if !ok || !role.OAuthCapable() {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "Not found",
		})
	}
	provider, err := a.providers.Get(c.Param("provider"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"success": false,
			"message": "Not found",
		})
	}

	sessionID := c.QueryParam("sessionId")
	if sessionID == "" {
		sessionID = a.relay.NewSessionID()
	}
	state := services.EncodeState(role, sessionID)
	return c.Redirect(http.StatusFound, provider.AuthCodeURL(state))
}

// OAuthCallbackHandler finishes the provider handshake. Whatever
// happens, the session's mailbox entry is the only carrier of the
// outcome; the HTTP response is always the self-closing page.
func (a *AuthAPI) OAuthCallbackHandler(c echo.Context) error {
	ctx := c.Request().Context()

	role, sessionID, err := services.ParseState(c.QueryParam("state"))
	if err != nil {
		// Without a session id there is no mailbox to write to.
		log.Warn().Err(err).Msg("oauth callback with malformed state")
		return c.HTML(http.StatusBadRequest, callbackPage)
	}

	result := a.resolveCallback(ctx, role, c.Param("provider"), c.QueryParam("code"), c.QueryParam("error"))
	if err := a.relay.Deposit(ctx, sessionID, result); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			log.Warn().Str("session_id", sessionID).Msg("duplicate oauth callback for session")
		} else {
			log.Error().Err(err).Str("session_id", sessionID).Msg("depositing oauth result")
		}
	}
	return c.HTML(http.StatusOK, callbackPage)
}

// resolveCallback runs the provider exchange and federation resolution
// and folds every path, including failures, into a terminal relay
// result.
func (a *AuthAPI) resolveCallback(ctx context.Context, role domain.Role, providerName, code, providerErr string) *services.RelayResult {
	if providerErr != "" {
		return &services.RelayResult{Success: false, Message: "Authentication was cancelled or denied"}
	}
	if code == "" {
		return &services.RelayResult{Success: false, Message: "Authentication failed"}
	}

	provider, err := a.providers.Get(providerName)
	if err != nil {
		return &services.RelayResult{Success: false, Message: "Authentication failed"}
	}
	token, err := provider.Exchange(ctx, code)
	if err != nil {
		log.Error().Err(err).Str("provider", providerName).Msg("exchanging authorization code")
		return &services.RelayResult{Success: false, Message: "Authentication failed"}
	}
	profile, err := provider.FetchProfile(ctx, token)
	if err != nil {
		log.Error().Err(err).Str("provider", providerName).Msg("fetching provider profile")
		return &services.RelayResult{Success: false, Message: "Authentication failed"}
	}

	outcome, err := a.federation.Resolve(ctx, role, providerName, profile, token)
	if err != nil {
		var authErr *autherrors.AuthError
		if errors.As(err, &authErr) {
			return &services.RelayResult{Success: false, Message: authErr.Message}
		}
		log.Error().Err(err).Msg("resolving federated identity")
		return &services.RelayResult{Success: false, Message: "Authentication failed"}
	}
	return a.relayOutcome(ctx, outcome)
}

// relayOutcome folds a federation outcome into the mailbox payload the
// opener page will poll for.
func (a *AuthAPI) relayOutcome(ctx context.Context, outcome *services.Outcome) *services.RelayResult {
	switch outcome.Kind {
	case services.OutcomeLogin:
		pair, err := a.auth.IssuePair(ctx, outcome.Account, "")
		if err != nil {
			return &services.RelayResult{Success: false, Message: "Authentication failed"}
		}
		account := outcome.Account.Profile()
		return &services.RelayResult{
			Success:      true,
			Token:        pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			Account:      &account,
		}
	case services.OutcomeConflict:
		conflictErr := autherrors.NewFederationConflict(
			"This identity already belongs to a " + string(outcome.ConflictRole) + " account")
		return &services.RelayResult{
			Success:      false,
			Message:      conflictErr.Message,
			Conflict:     outcome.Conflict,
			ConflictRole: string(outcome.ConflictRole),
		}
	case services.OutcomeNewUser:
		return &services.RelayResult{
			Success:              true,
			IsNewUser:            true,
			PreRegistrationToken: outcome.PreRegistrationToken,
			Profile: &services.RelayProfile{
				Email:     outcome.Profile.Email,
				FirstName: outcome.Profile.FirstName,
				LastName:  outcome.Profile.LastName,
				Picture:   outcome.Profile.PictureURL,
			},
		}
	default:
		return &services.RelayResult{Success: false, Message: "Authentication failed"}
	}
}

// PollSessionHandler hands a handshake result to the page that opened
// the popup, exactly once.
func (a *AuthAPI) PollSessionHandler(c echo.Context) error {
	payload, err := a.relay.Collect(c.Request().Context(), c.Param("sessionId"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]interface{}{
				"success": false,
				"message": "No result for this session",
			})
		}
		return respondError(c, err)
	}
	return c.JSONBlob(http.StatusOK, payload)
}

type socialCompleteRequest struct {
	PreRegistrationToken string `json:"preRegistrationToken"`
	CompanyName          string `json:"companyName"`
	Address              string `json:"address"`
	Phone                string `json:"phone"`
}

// SocialCompleteHandler finalizes a social registration.
func (a *AuthAPI) SocialCompleteHandler(c echo.Context) error {
	role, ok := domain.ParseRole(c.Param("role"))
	if !ok {
		return respondError(c, autherrors.NewValidationFailed("unknown role"))
	}
	var req socialCompleteRequest
	if err := c.Bind(&req); err != nil || req.PreRegistrationToken == "" {
		return respondError(c, autherrors.NewValidationFailed("registration token is required"))
	}

	result, err := a.registration.Complete(c.Request().Context(), role, req.PreRegistrationToken, &services.CompletionInput{
		CompanyName: req.CompanyName,
		Address:     req.Address,
		Phone:       req.Phone,
	}, c.RealIP())
	if err != nil {
		return respondError(c, err)
	}
	return respondLogin(c, result)
}
