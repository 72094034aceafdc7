package handlers

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/mayau-app/internal/constants"
	"github.com/yukikurage/mayau-app/internal/dto"
	apierrors "github.com/yukikurage/mayau-app/internal/errors"
	"github.com/yukikurage/mayau-app/internal/middleware"
	"github.com/yukikurage/mayau-app/internal/services"
	"github.com/yukikurage/mayau-app/internal/session"
)

const (
	oauthStateCookie = "mayau_oauth_state"
	oauthStateMaxAge = 600
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService  *services.AuthService
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		secureCookie: secureCookie,
	}
}

// GoogleLogin returns the identity provider URL that starts Google sign-in.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	state, err := newOAuthState()
	if err != nil {
		apierrors.InternalError(c, "Failed to start sign-in")
		return
	}

	url, err := h.authService.AuthorizationURL(state)
	if err != nil {
		respondError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, oauthStateMaxAge, "/api/auth", "", h.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Callback completes Google sign-in and initializes the session.
func (h *AuthHandler) Callback(c *gin.Context) {
	expected, err := c.Cookie(oauthStateCookie)
	state := c.Query("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(state)) != 1 {
		apierrors.Unauthorized(c, "Sign-in state mismatch")
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/api/auth", "", h.secureCookie, true)

	sess, err := h.authService.CompleteSignIn(c.Request.Context(), c.Query("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer sess.Close()

	h.startSession(c, sess)
}

// MasterLogin signs in the reserved master account.
func (h *AuthHandler) MasterLogin(c *gin.Context) {
	type MasterLoginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	var req MasterLoginRequest
	if err := bindJSON(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	sess, err := h.authService.SignInMaster(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	defer sess.Close()

	h.startSession(c, sess)
}

func (h *AuthHandler) startSession(c *gin.Context, sess *session.Session) {
	cookieSession := sessions.Default(c)
	cookieSession.Set(constants.ContextKeyUserID, sess.Identity().ID)
	if err := cookieSession.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, dto.FromSession(sess))
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// Me returns the signed-in identity, its profile and the gate state.
func (h *AuthHandler) Me(c *gin.Context) {
	identityID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	principal, err := h.authService.Current(c.Request.Context(), identityID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToSessionDTO(*principal))
}

// UpdateMe changes the caller's display name. Pending identities may call it.
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	identityID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type UpdateMeRequest struct {
		DisplayName string `json:"display_name"`
	}

	var req UpdateMeRequest
	if err := bindJSON(c, &req); err != nil {
		respondBindError(c, err)
		return
	}

	if _, err := h.authService.UpdateDisplayName(c.Request.Context(), identityID, req.DisplayName); err != nil {
		respondError(c, err)
		return
	}

	principal, err := h.authService.Current(c.Request.Context(), identityID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToSessionDTO(*principal))
}

func newOAuthState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
