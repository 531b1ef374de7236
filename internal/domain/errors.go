package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidFilm  = errors.New("film title is required")
	ErrInvalidQuery = errors.New("query is required")
)
