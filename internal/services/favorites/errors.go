package favorites

import "errors"

var (
	ErrFavoritesUnavailable = errors.New("favorites are unavailable")
	ErrInvalidMovieID       = errors.New("movie id must be greater than zero")
)
