package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yukikurage/mayau-app/internal/models"
	"github.com/yukikurage/mayau-app/internal/realtime"
)

// ErrInvalidInput is wrapped by every validation failure a service returns.
var ErrInvalidInput = errors.New("invalid input")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// IsValidationError reports whether err was caused by bad input, either
// caught by a service or rejected by a model hook on write.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, models.ErrInvalidField)
}

// publish notifies subscribers of a change that has already been committed.
// A failed notification is logged; the write itself stands.
func publish(ctx context.Context, publisher realtime.Publisher, channel, kind string, data any) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, channel, kind, data); err != nil {
		slog.WarnContext(ctx, "failed to publish change event",
			"error", err,
			"channel", channel,
			"kind", kind,
		)
	}
}

// uniqueIDs trims ids, drops blanks and removes duplicates, keeping first-seen order.
func uniqueIDs(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}
