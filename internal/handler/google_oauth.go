package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"smartdecor/config"
	"smartdecor/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	oauthStateCookie  = "oauth_state"
)

// IDTokenValidator checks a Google ID token for the configured client.
type IDTokenValidator func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

type GoogleOAuthHandler struct {
	cfg      *config.OAuthConfig
	authSvc  *service.AuthService
	validate IDTokenValidator
	log      *zap.Logger
}

func NewGoogleOAuthHandler(cfg *config.OAuthConfig, authSvc *service.AuthService, log *zap.Logger) *GoogleOAuthHandler {
	return &GoogleOAuthHandler{cfg: cfg, authSvc: authSvc, validate: idtoken.Validate, log: log.Named("google_oauth")}
}

func (h *GoogleOAuthHandler) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.cfg.GoogleClientID,
		ClientSecret: h.cfg.GoogleClientSecret,
		RedirectURL:  h.cfg.GoogleRedirectURL,
		Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
		Endpoint:     google.Endpoint,
	}
}

func (h *GoogleOAuthHandler) configured(c *gin.Context) bool {
	if h.cfg.GoogleClientID == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google OAuth not configured"})
		return false
	}
	return true
}

// Redirect sends the user to the Google consent screen.
func (h *GoogleOAuthHandler) Redirect(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	state := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", c.Request.TLS != nil, true)
	c.Redirect(http.StatusFound, h.OAuth2Config().AuthCodeURL(state, oauth2.AccessTypeOffline))
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Callback exchanges the code, fetches the profile, and signs the user in.
func (h *GoogleOAuthHandler) Callback(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	if state, err := c.Cookie(oauthStateCookie); err != nil || state == "" || state != c.Query("state") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}
	ctx := c.Request.Context()
	conf := h.OAuth2Config()
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		h.log.Warn("code exchange failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "exchange failed"})
		return
	}
	resp, err := conf.Client(ctx, tok).Get(googleUserInfoURL)
	if err != nil {
		h.log.Error("userinfo request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user info"})
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		h.log.Error("userinfo rejected", zap.Int("status", resp.StatusCode))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user info"})
		return
	}
	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil || info.ID == "" || info.Email == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user info"})
		return
	}
	h.signIn(c, info)
}

// Token accepts an ID token obtained by a mobile or web Google sign-in and returns our tokens.
func (h *GoogleOAuthHandler) Token(c *gin.Context) {
	if !h.configured(c) {
		return
	}
	var req struct {
		IDToken string `json:"id_token" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	payload, err := h.validate(c.Request.Context(), req.IDToken, h.cfg.GoogleClientID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid id_token"})
		return
	}
	info := googleUserInfo{ID: payload.Subject}
	info.Email, _ = payload.Claims["email"].(string)
	info.Name, _ = payload.Claims["name"].(string)
	info.Picture, _ = payload.Claims["picture"].(string)
	if info.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token payload"})
		return
	}
	h.signIn(c, info)
}

func (h *GoogleOAuthHandler) signIn(c *gin.Context, info googleUserInfo) {
	u, pair, isNew, err := h.authSvc.LoginWithGoogle(info.ID, info.Email, info.Name, info.Picture)
	if err != nil {
		if errors.Is(err, service.ErrInactiveUser) {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		h.log.Error("google login failed", zap.String("email", info.Email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	h.log.Info("google sign-in", zap.Uint("user_id", u.ID), zap.Bool("new_account", isNew))
	c.JSON(http.StatusOK, gin.H{"user": u, "access_token": pair.AccessToken, "refresh_token": pair.RefreshToken, "token_type": pair.TokenType})
}
