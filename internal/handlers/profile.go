package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/mayau-app/internal/dto"
	apierrors "github.com/yukikurage/mayau-app/internal/errors"
	"github.com/yukikurage/mayau-app/internal/middleware"
	"github.com/yukikurage/mayau-app/internal/services"
)

type ProfileHandler struct {
	profileService *services.ProfileService
}

func NewProfileHandler(profileService *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

// ListProfiles returns profiles, optionally filtered with ?approved=
func (h *ProfileHandler) ListProfiles(c *gin.Context) {
	var approved *bool
	if raw := c.Query("approved"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid approved filter")
			return
		}
		approved = &value
	}

	profiles, err := h.profileService.ListProfiles(c.Request.Context(), approved)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profiles": dto.ToProfileDTOs(profiles),
	})
}

// Approve grants access to a pending identity.
func (h *ProfileHandler) Approve(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	profile, err := h.profileService.Approve(c.Request.Context(), principal.Identity.ID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProfileDTO(*profile))
}
