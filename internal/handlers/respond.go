package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	apierrors "github.com/yukikurage/mayau-app/internal/errors"
	"github.com/yukikurage/mayau-app/internal/services"
	"github.com/yukikurage/mayau-app/internal/session"
)

// bindJSON decodes the request body into obj, rejecting unknown fields, and
// then runs the binding tag validation.
func bindJSON(c *gin.Context, obj any) error {
	if c.Request.Body == nil {
		return errors.New("request body is empty")
	}

	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(obj); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return err
	}
	if decoder.More() {
		return errors.New("request body must contain a single JSON object")
	}

	return binding.Validator.ValidateStruct(obj)
}

func respondBindError(c *gin.Context, err error) {
	apierrors.BadRequestWithDetails(c, "Invalid request body", gin.H{"reason": err.Error()})
}

// respondError maps a service error onto the API error envelope.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c)
	case errors.Is(err, services.ErrInvalidCode):
		apierrors.Unauthorized(c, "Sign-in failed")
	case errors.Is(err, services.ErrIdentityNotFound),
		errors.Is(err, session.ErrUnknownIdentity):
		apierrors.Unauthorized(c, "Session no longer valid")
	case errors.Is(err, session.ErrReservedIdentity):
		apierrors.PermissionDenied(c, "This identity is reserved", "")
	case services.IsValidationError(err):
		apierrors.BadRequest(c, validationMessage(err))
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, services.ErrWorkspaceNotFound):
		apierrors.NotFound(c, "Workspace not found")
	case errors.Is(err, services.ErrProfileNotFound):
		apierrors.NotFound(c, "Profile not found")
	case errors.Is(err, services.ErrProviderNotConfigured),
		errors.Is(err, services.ErrStorageNotConfigured),
		errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, err.Error())
	case errors.Is(err, services.ErrAINoTasksGenerated),
		errors.Is(err, services.ErrAINoValidTasks):
		apierrors.InternalError(c, err.Error())
	default:
		slog.ErrorContext(c.Request.Context(), "request failed", "error", err)
		apierrors.InternalError(c, "Internal server error")
	}
}

// validationMessage strips the "invalid input: " prefix added by the
// services package.
func validationMessage(err error) string {
	message := err.Error()
	prefix := fmt.Sprintf("%s: ", services.ErrInvalidInput.Error())
	if i := strings.LastIndex(message, prefix); i >= 0 {
		return message[i+len(prefix):]
	}
	return message
}
