package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrInvalidPayload      = errors.New("invalid payload")
)
