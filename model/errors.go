package model

import "errors"

// ErrBodyNotFound indicates a body reference could not be resolved to a
// world position.
var ErrBodyNotFound = errors.New("body not found")
