// Package state holds the per-user view state the front end renders: the
// session, the current catalog query and its results, and the favorites
// overlay. All changes go through Reduce.
package state

import (
	"moviedb/proj/internal/domain/filters"
	"moviedb/proj/internal/domain/models"
)

type View string

const (
	ViewSignIn  View = "sign_in"
	ViewLoading View = "loading"
	ViewError   View = "error"
	ViewEmpty   View = "empty"
	ViewCatalog View = "catalog"
)

const (
	MsgLoadError = "Error loading movies. Please try again."
	MsgNoMovies  = "No movies found."
)

type State struct {
	Session   *models.Session
	Query     string
	Page      int
	Movies    *models.MoviePage
	Loading   bool
	Err       string
	Favorites []models.Movie

	// bumped on every local favorite change
	favoritesRev uint64
}

type Action interface {
	action()
}

// SessionChanged replaces the session. A nil Session signs the user out.
type SessionChanged struct {
	Session *models.Session
}

type SearchChanged struct {
	Query string
	Page  int
}

// MoviesLoaded carries the outcome of the catalog request made for Query/Page.
type MoviesLoaded struct {
	Query  string
	Page   int
	Result *models.MoviePage
	Err    error
}

// FavoritesLoaded replaces the favorites with a fresh read of the table.
// Rev is the FavoritesRev observed before the read; the result is dropped
// when favorites changed locally in the meantime.
type FavoritesLoaded struct {
	Movies []models.Movie
	Rev    uint64
}

type FavoriteToggled struct {
	Movie     models.Movie
	Favorited bool
}

func (SessionChanged) action()  {}
func (SearchChanged) action()   {}
func (MoviesLoaded) action()    {}
func (FavoritesLoaded) action() {}
func (FavoriteToggled) action() {}

func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SessionChanged:
		if a.Session == nil {
			return State{}
		}
		if s.Session == nil || s.Session.UserID != a.Session.UserID {
			return State{Session: a.Session, Page: filters.DefaultPage}
		}
		s.Session = a.Session
		return s
	case SearchChanged:
		q := filters.New(a.Query, a.Page)
		s.Query = q.Query
		s.Page = q.Page
		s.Loading = true
		s.Err = ""
		return s
	case MoviesLoaded:
		q := filters.New(a.Query, a.Page)
		// a response for a superseded query only lands in the query cache
		if q.Query != s.Query || q.Page != s.Page {
			return s
		}
		s.Loading = false
		if a.Err != nil {
			s.Err = MsgLoadError
			s.Movies = nil
			return s
		}
		s.Err = ""
		s.Movies = a.Result
		return s
	case FavoritesLoaded:
		if a.Rev != s.favoritesRev {
			return s
		}
		s.Favorites = append([]models.Movie{}, a.Movies...)
		return s
	case FavoriteToggled:
		favorites := make([]models.Movie, 0, len(s.Favorites)+1)
		for _, m := range s.Favorites {
			if m.ID != a.Movie.ID {
				favorites = append(favorites, m)
			}
		}
		if a.Favorited {
			favorites = append(favorites, a.Movie)
		}
		s.Favorites = favorites
		s.favoritesRev++
		return s
	default:
		return s
	}
}

func (s State) View() View {
	switch {
	case s.Session == nil:
		return ViewSignIn
	case s.Loading:
		return ViewLoading
	case s.Err != "":
		return ViewError
	case s.Movies == nil:
		return ViewLoading
	case len(s.Movies.Results) == 0:
		return ViewEmpty
	default:
		return ViewCatalog
	}
}

func (s State) FavoritesRev() uint64 {
	return s.favoritesRev
}

func (s State) IsFavorite(movieID int) bool {
	for _, m := range s.Favorites {
		if m.ID == movieID {
			return true
		}
	}
	return false
}

type MovieCard struct {
	models.Movie
	IsFavorite bool `json:"is_favorite"`
}

type Snapshot struct {
	View       View           `json:"view"`
	Message    string         `json:"message,omitempty"`
	Query      string         `json:"query"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
	Movies     []MovieCard    `json:"movies"`
	Favorites  []models.Movie `json:"favorites"`
}

// Snapshot renders the state with the favorites overlaid on the movie grid.
func (s State) Snapshot() Snapshot {
	snap := Snapshot{
		View:      s.View(),
		Query:     s.Query,
		Page:      s.Page,
		Movies:    []MovieCard{},
		Favorites: append([]models.Movie{}, s.Favorites...),
	}
	switch snap.View {
	case ViewSignIn:
		snap.Favorites = []models.Movie{}
	case ViewError:
		snap.Message = s.Err
	case ViewEmpty:
		snap.Message = MsgNoMovies
	case ViewCatalog:
		snap.TotalPages = s.Movies.TotalPages
		snap.Movies = s.Cards(s.Movies.Results)
	}
	return snap
}

// Cards overlays the favorite flag on movies.
func (s State) Cards(movies []models.Movie) []MovieCard {
	cards := make([]MovieCard, 0, len(movies))
	for _, m := range movies {
		cards = append(cards, MovieCard{Movie: m, IsFavorite: s.IsFavorite(m.ID)})
	}
	return cards
}
