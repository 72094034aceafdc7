package models

import "errors"

// ErrInvalidField is returned by save hooks when a record fails schema validation.
var ErrInvalidField = errors.New("invalid field value")
