package middleware

import (
	"context"
	"errors"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/mayau-app/internal/constants"
	apierrors "github.com/yukikurage/mayau-app/internal/errors"
	"github.com/yukikurage/mayau-app/internal/gate"
	"github.com/yukikurage/mayau-app/internal/logger"
	"github.com/yukikurage/mayau-app/internal/services"
	"github.com/yukikurage/mayau-app/internal/session"
)

// PrincipalResolver resolves a signed-in identity's current access.
type PrincipalResolver interface {
	Current(ctx context.Context, identityID string) (*session.Principal, error)
}

// RequireAuth checks if the user is authenticated via session
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		identityID, ok := session.Get(constants.ContextKeyUserID).(string)

		if !ok || identityID == "" {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		// Store identity ID in context for easy access in handlers
		c.Set(constants.ContextKeyUserID, identityID)
		c.Request = c.Request.WithContext(logger.WithLogFields(c.Request.Context(), logger.LogFields{
			IdentityID: &identityID,
		}))
		c.Next()
	}
}

// RequireActive admits approved identities and the master account. The
// profile is read on every request, so an approval takes effect at once.
func RequireActive(resolver PrincipalResolver) gin.HandlerFunc {
	return requireState(resolver, func(c *gin.Context, state gate.State) bool {
		if state.CanWrite() {
			return true
		}
		apierrors.PermissionDenied(c, "Your account is waiting for approval", apierrors.HintAwaitApproval)
		return false
	})
}

// RequireMaster admits only the master account.
func RequireMaster(resolver PrincipalResolver) gin.HandlerFunc {
	return requireState(resolver, func(c *gin.Context, state gate.State) bool {
		if state == gate.MasterActive {
			return true
		}
		apierrors.PermissionDenied(c, "Only the master account can perform this action", apierrors.HintMasterOnly)
		return false
	})
}

func requireState(resolver PrincipalResolver, allow func(c *gin.Context, state gate.State) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		identityID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		principal, err := resolver.Current(c.Request.Context(), identityID)
		if err != nil {
			if errors.Is(err, services.ErrIdentityNotFound) {
				apierrors.Unauthorized(c, "Session no longer valid")
			} else {
				apierrors.InternalError(c, "Failed to resolve session")
			}
			c.Abort()
			return
		}

		if !allow(c, principal.State) {
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyProfile, principal)
		c.Next()
	}
}

// GetUserID retrieves the current identity ID from context
func GetUserID(c *gin.Context) (string, bool) {
	identityID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return "", false
	}

	id, ok := identityID.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// GetPrincipal retrieves the principal stored by RequireActive or RequireMaster
func GetPrincipal(c *gin.Context) (*session.Principal, bool) {
	value, exists := c.Get(constants.ContextKeyProfile)
	if !exists {
		return nil, false
	}
	principal, ok := value.(*session.Principal)
	return principal, ok
}
