package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
)

const maxObjectNameLength = 100

// GenerateObjectKey builds a collision-free storage key for a task
// attachment in the format tasks/<task id>/<XXXX-XXXX-XXXX>-<file name>.
func GenerateObjectKey(taskID int64, filename string) (string, error) {
	bytes := make([]byte, 6)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	hex := hex.EncodeToString(bytes)
	return fmt.Sprintf("tasks/%d/%s-%s-%s-%s",
		taskID,
		hex[0:4],
		hex[4:8],
		hex[8:12],
		SanitizeFilename(filename),
	), nil
}

// SanitizeFilename keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with an underscore.
func SanitizeFilename(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "file"
	}

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	name := b.String()
	if len(name) > maxObjectNameLength {
		name = name[len(name)-maxObjectNameLength:]
	}
	return name
}
