package catalog

import "errors"

var (
	ErrCatalogUnavailable = errors.New("error loading movies")
	ErrInvalidPage        = errors.New("page must be between 1 and 500")
	ErrInvalidMovieID     = errors.New("movie id must be greater than zero")
)
