package oauth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"vendor-service/prometheus"
)

// Config describes the upstream OAuth provider and this service's client
// registration with it.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthorizeURL string
	TokenURL     string
	ValidateURL  string
	Scopes       []string
	Timeout      time.Duration
}

// Client talks to the upstream OAuth provider
type Client struct {
	config     Config
	HTTPClient *http.Client
	Logger     *zap.Logger
	metrics    *prometheus.Metrics
}

// TokenResponse represents the response from the OAuth token endpoint
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// TokenValidationResponse is the body returned by the validation endpoint.
// Providers answer either with an introspection document (active, user_id)
// or with the user resource itself (id); both shapes are accepted.
type TokenValidationResponse struct {
	Active   *bool  `json:"active,omitempty"`
	UserID   uint   `json:"user_id,omitempty"`
	ID       uint   `json:"id,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Exp      int64  `json:"exp,omitempty"`
	Scope    string `json:"scope,omitempty"`
}

// IsActive reports whether the provider considers the token live
func (r *TokenValidationResponse) IsActive() bool {
	return r.Active == nil || *r.Active
}

// ResolvedUserID returns the user the token belongs to, 0 when unknown
func (r *TokenValidationResponse) ResolvedUserID() uint {
	if r.UserID != 0 {
		return r.UserID
	}
	return r.ID
}

// ErrorResponse represents an OAuth error response
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// UpstreamError is returned when the provider answers with a non-2xx status
type UpstreamError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *UpstreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("oauth provider returned %d: %s - %s", e.StatusCode, e.Code, e.Description)
	}
	return fmt.Sprintf("oauth provider returned %d", e.StatusCode)
}

// NewClient creates a new OAuth client instance
func NewClient(config Config, logger *zap.Logger, metrics *prometheus.Metrics) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		config:     config,
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
		metrics:    metrics,
	}
}

// AuthorizeURL builds the authorization-code redirect for state
func (c *Client) AuthorizeURL(state string) (string, error) {
	u, err := url.Parse(c.config.AuthorizeURL)
	if err != nil {
		return "", fmt.Errorf("parse authorize url: %w", err)
	}

	q := u.Query()
	q.Set("client_id", c.config.ClientID)
	q.Set("redirect_uri", c.config.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(c.config.Scopes, " "))
	q.Set("state", state)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// ExchangeCode trades an authorization code for a token pair
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	c.Logger.Info("Exchanging authorization code", zap.String("client_id", c.config.ClientID))

	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", c.config.RedirectURI)

	resp, err := c.requestToken(ctx, data)
	c.metrics.RecordOAuthRequest("authorization_code", err)
	return resp, err
}

// RefreshToken trades a refresh token for a new token pair
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	c.Logger.Info("Refreshing access token", zap.String("client_id", c.config.ClientID))

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	resp, err := c.requestToken(ctx, data)
	c.metrics.RecordOAuthRequest("refresh_token", err)
	return resp, err
}

// GetClientCredentialsToken obtains an access token using the client credentials grant
func (c *Client) GetClientCredentialsToken(ctx context.Context, scope string) (*TokenResponse, error) {
	c.Logger.Info("Requesting client credentials token",
		zap.String("client_id", c.config.ClientID),
		zap.String("scope", scope))

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	if scope != "" {
		data.Set("scope", scope)
	}

	resp, err := c.requestToken(ctx, data)
	c.metrics.RecordOAuthRequest("client_credentials", err)
	return resp, err
}

// ValidateToken asks the validation endpoint who token belongs to
func (c *Client) ValidateToken(ctx context.Context, token string) (*TokenValidationResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.ValidateURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	var validationResp TokenValidationResponse
	err = c.do(req, &validationResp)
	c.metrics.RecordOAuthRequest("validate", err)
	if err != nil {
		c.Logger.Warn("Token validation failed", zap.Error(err))
		return nil, err
	}

	c.Logger.Debug("Token validation result",
		zap.Bool("active", validationResp.IsActive()),
		zap.Uint("user_id", validationResp.ResolvedUserID()))

	return &validationResp, nil
}

// Helper function to make token requests
func (c *Client) requestToken(ctx context.Context, data url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+c.getBasicAuth())

	var tokenResp TokenResponse
	if err := c.do(req, &tokenResp); err != nil {
		c.Logger.Error("Token request failed", zap.Error(err))
		return nil, err
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token response without access_token")
	}

	return &tokenResp, nil
}

// do sends req and decodes a 2xx JSON body into out
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		upstreamErr := &UpstreamError{StatusCode: resp.StatusCode}
		var errorResp ErrorResponse
		if json.Unmarshal(body, &errorResp) == nil {
			upstreamErr.Code = errorResp.Error
			upstreamErr.Description = errorResp.ErrorDescription
		}
		return upstreamErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Helper function to create basic auth credentials
func (c *Client) getBasicAuth() string {
	auth := url.QueryEscape(c.config.ClientID) + ":" + url.QueryEscape(c.config.ClientSecret)
	return base64.StdEncoding.EncodeToString([]byte(auth))
}
