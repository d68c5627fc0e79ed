package event

import "errors"

var (
	ErrNilEvent     = errors.New("nil event")
	ErrInvalidEvent = errors.New("invalid event")
)
