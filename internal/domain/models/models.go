package models

import (
	"moviedb/proj/internal/domain/fields"
	"time"
)

type Movie struct {
	ID          int     `json:"id"`           // Catalog movie ID
	Title       string  `json:"title"`        // Movie title
	Overview    string  `json:"overview"`     // Short plot description
	PosterPath  string  `json:"poster_path"`  // Poster path relative to the catalog image host
	ReleaseDate string  `json:"release_date"` // Release date as YYYY-MM-DD, may be empty
	VoteAverage float64 `json:"vote_average"` // Average vote (0-10)
	VoteCount   int     `json:"vote_count"`   // Number of votes
	GenreIDs    []int   `json:"genre_ids"`    // Catalog genre IDs
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Video is a trailer reference, e.g. {key: "SUXWAEX2jlg", site: "YouTube", type: "Trailer"}.
type Video struct {
	Key  string `json:"key"`
	Site string `json:"site"`
	Type string `json:"type"`
}

type MovieDetails struct {
	Movie
	Runtime fields.MovieRuntime `json:"runtime,omitempty"` // Runtime in minutes
	Genres  []Genre             `json:"genres"`
	Videos  []Video             `json:"videos"`
}

type MoviePage struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

type Favorite struct {
	UserID    int64     `json:"user_id"`
	MovieID   int64     `json:"movie_id"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	UserID       int64     `json:"user_id"`
	Email        string    `json:"email"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (s *Session) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// SessionEvent is published on every change of a user's session.
// A nil Session means the user signed out or the session expired.
type SessionEvent struct {
	UserID  int64     `json:"user_id"`
	Session *Session  `json:"session"`
	At      time.Time `json:"at"`
	// access token whose end caused the event, empty for sign-ins
	Revoked string `json:"-"`
}

func (e SessionEvent) SignedOut() bool {
	return e.Session == nil
}
