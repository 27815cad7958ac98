package config

import "errors"

// ErrInvalid is returned when a setting has an unusable value.
var ErrInvalid = errors.New("invalid setting")
