package models

import "errors"

var (
	ErrConfig        = errors.New("invalid configuration")
	ErrUnreadablePDF = errors.New("unreadable PDF")
	ErrEmptyIndex    = errors.New("cannot build an index from zero chunks")
	ErrProvider      = errors.New("model provider request failed")
)
