package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"vendor-service/internal/middleware"
	"vendor-service/internal/model"
	"vendor-service/internal/repository"
	"vendor-service/pkg/jwtutil"
	"vendor-service/pkg/logger"
	"vendor-service/pkg/oauth"
)

// StateCookie carries the login state between /login and /callback
const StateCookie = "oauth_state"

// OAuthProvider is the subset of the OAuth client the account routes use
type OAuthProvider interface {
	AuthorizeURL(state string) (string, error)
	ExchangeCode(ctx context.Context, code string) (*oauth.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*oauth.TokenResponse, error)
	GetClientCredentialsToken(ctx context.Context, scope string) (*oauth.TokenResponse, error)
	ValidateToken(ctx context.Context, token string) (*oauth.TokenValidationResponse, error)
}

// SessionResponse is returned by the callback and refresh routes
type SessionResponse struct {
	UserID           uint      `json:"user_id"`
	SessionToken     string    `json:"session_token"`
	SessionExpiresAt time.Time `json:"session_expires_at"`
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token,omitempty"`
	TokenType        string    `json:"token_type"`
	ExpiresIn        int       `json:"expires_in"`
}

// AccountHandler serves the /accounts routes
type AccountHandler struct {
	provider OAuthProvider
	accounts repository.AccountStore
	jwt      *jwtutil.JWTUtil
	secure   bool
}

// NewAccountHandler creates an AccountHandler. secure marks the state cookie
// as HTTPS only.
func NewAccountHandler(provider OAuthProvider, accounts repository.AccountStore, jwt *jwtutil.JWTUtil, secure bool) *AccountHandler {
	return &AccountHandler{provider: provider, accounts: accounts, jwt: jwt, secure: secure}
}

// Register mounts the account routes on g
func (h *AccountHandler) Register(g *echo.Group) {
	g.GET("/login", h.Login)
	g.GET("/callback", h.Callback)
	g.POST("/refresh", h.Refresh, middleware.SessionTokenMiddleware(h.jwt))
	g.GET("/client-token", h.ClientToken)
}

// Login redirects the browser to the provider's authorization page
func (h *AccountHandler) Login(c echo.Context) error {
	state := uuid.New().String()

	authURL, err := h.provider.AuthorizeURL(state)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
	}

	c.SetCookie(&http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     "/accounts",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	logger.FromEcho(c).Info("Redirecting to OAuth provider")
	return c.Redirect(http.StatusFound, authURL)
}

// Callback completes the authorization code flow and issues a session token
func (h *AccountHandler) Callback(c echo.Context) error {
	log := logger.FromEcho(c)
	ctx := c.Request().Context()

	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Authorization code is required")
	}
	if err := h.checkState(c); err != nil {
		log.Warn("OAuth state rejected", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid state")
	}

	token, err := h.provider.ExchangeCode(ctx, code)
	if err != nil {
		log.Warn("Code exchange failed", zap.Error(err))
		return upstreamUnauthorized(c, "Failed to exchange authorization code")
	}

	validation, err := h.provider.ValidateToken(ctx, token.AccessToken)
	if err != nil {
		log.Warn("Token validation failed", zap.Error(err))
		return upstreamUnauthorized(c, "The access token is invalid")
	}
	userID := validation.ResolvedUserID()
	if !validation.IsActive() || userID == 0 {
		return upstreamUnauthorized(c, "The token is not bound to a user")
	}

	resp, err := h.saveSession(c, userID, token)
	if err != nil {
		return err
	}

	log.Info("User signed in", zap.Uint("user_id", userID))
	return c.JSON(http.StatusOK, resp)
}

// checkState matches the state query parameter against the cookie set by
// Login. A callback carrying neither is accepted only when cookies are not
// marked secure.
func (h *AccountHandler) checkState(c echo.Context) error {
	state := c.QueryParam("state")
	cookie, err := c.Cookie(StateCookie)
	if err != nil {
		if state != "" || h.secure {
			return errors.New("state cookie missing")
		}
		return nil
	}
	if cookie.Value == "" || cookie.Value != state {
		return errors.New("state mismatch")
	}
	return nil
}

// Refresh trades the stored refresh token for a new pair and re-signs the
// session token
func (h *AccountHandler) Refresh(c echo.Context) error {
	log := logger.FromEcho(c)

	userID, ok := middleware.SessionUserID(c)
	if !ok {
		return upstreamUnauthorized(c, "Session token is required")
	}

	account, err := h.accounts.Get(c.Request().Context(), userID)
	if errors.Is(err, repository.ErrNotFound) {
		return upstreamUnauthorized(c, "No stored session for this user")
	}
	if err != nil {
		return storeError(c, err, "Account not found", "Account already exists")
	}
	if account.RefreshToken == "" {
		return upstreamUnauthorized(c, "No refresh token stored for this user")
	}

	log.Info("Refreshing session", zap.Bool("access_token_expired", account.IsExpired()))

	token, err := h.provider.RefreshToken(c.Request().Context(), account.RefreshToken)
	if err != nil {
		log.Warn("Refresh grant failed", zap.Error(err))
		return upstreamUnauthorized(c, "Failed to refresh the access token")
	}
	if token.RefreshToken == "" {
		// providers that do not rotate refresh tokens keep the old one valid
		token.RefreshToken = account.RefreshToken
	}

	resp, err := h.saveSession(c, userID, token)
	if err != nil {
		return err
	}

	log.Info("Session refreshed")
	return c.JSON(http.StatusOK, resp)
}

// ClientToken performs a client credentials grant for service calls
func (h *AccountHandler) ClientToken(c echo.Context) error {
	scope := strings.TrimSpace(c.QueryParam("scope"))

	token, err := h.provider.GetClientCredentialsToken(c.Request().Context(), scope)
	if err != nil {
		logger.FromEcho(c).Warn("Client credentials grant failed", zap.Error(err))
		return upstreamUnauthorized(c, "Failed to obtain a client token")
	}
	return c.JSON(http.StatusOK, token)
}

func (h *AccountHandler) saveSession(c echo.Context, userID uint, token *oauth.TokenResponse) (*SessionResponse, error) {
	account := &model.Account{
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if token.ExpiresIn > 0 {
		account.ExpiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}
	if err := h.accounts.Upsert(c.Request().Context(), account); err != nil {
		return nil, storeError(c, err, "Account not found", "Account already exists")
	}

	sessionToken, expiresAt, err := h.jwt.GenerateToken(userID)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
	}

	return &SessionResponse{
		UserID:           userID,
		SessionToken:     sessionToken,
		SessionExpiresAt: expiresAt,
		AccessToken:      token.AccessToken,
		RefreshToken:     token.RefreshToken,
		TokenType:        token.TokenType,
		ExpiresIn:        token.ExpiresIn,
	}, nil
}

func upstreamUnauthorized(c echo.Context, detail string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return echo.NewHTTPError(http.StatusUnauthorized, detail)
}
