package storage

import "errors"

var (
	// ErrModelNotFound is returned when a custom model is not found
	ErrModelNotFound = errors.New("model not found")

	// ErrVersionNotFound is returned when a model version is not found
	ErrVersionNotFound = errors.New("model version not found")

	// ErrToolNotFound is returned when a tool is not found
	ErrToolNotFound = errors.New("tool not found")

	// ErrNotActive is returned when a model is not in the active set
	ErrNotActive = errors.New("model not in active set")

	// ErrDuplicateName is returned when a unique name constraint is violated
	ErrDuplicateName = errors.New("name already in use")
)
