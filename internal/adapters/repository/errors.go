package repository

import (
	"errors"

	"github.com/okian/critic/internal/domain/model"
)

// Sentinel kinds for store errors.
var (
	ErrNotFound      = model.ErrNotFound
	ErrAlreadyJudged = model.ErrAlreadyJudged
	ErrConflict      = errors.New("already exists")
	ErrHasHistory    = errors.New("has match history")
	ErrInvalidName   = errors.New("invalid name")
	ErrClosed        = errors.New("store closed")
)
