package favorites

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"moviedb/proj/internal/domain/models"
	"moviedb/proj/internal/state"
	"moviedb/proj/internal/storage"

	"github.com/sourcegraph/conc/pool"
)

const refreshTimeout = 30 * time.Second

type FavoritesStorage interface {
	ListMovieIDs(ctx context.Context, userID int64) ([]int64, error)
	Insert(ctx context.Context, userID, movieID int64) (*models.Favorite, error)
	Delete(ctx context.Context, userID, movieID int64) error
}

type MovieDetailsProvider interface {
	GetDetails(ctx context.Context, id int) (*models.MovieDetails, error)
}

type StateStore interface {
	State(userID int64) state.State
	Dispatch(userID int64, a state.Action) state.State
}

type TaskExecutor interface {
	Add(task func())
}

type Service struct {
	log        *slog.Logger
	storage    FavoritesStorage
	catalog    MovieDetailsProvider
	state      StateStore
	tasks      TaskExecutor
	maxWorkers int
}

func New(
	log *slog.Logger,
	storage FavoritesStorage,
	catalog MovieDetailsProvider,
	stateStore StateStore,
	tasks TaskExecutor,
	maxWorkers int,
) *Service {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Service{
		log:        log,
		storage:    storage,
		catalog:    catalog,
		state:      stateStore,
		tasks:      tasks,
		maxWorkers: maxWorkers,
	}
}

// Load reads the user's favorite ids and materialises each one from the catalog.
// Movies whose details can't be fetched are left out. When the user toggled a
// favorite while the table was being read, the local list wins and another
// load is scheduled.
func (s *Service) Load(ctx context.Context, userID int64) ([]models.Movie, error) {
	const op = "favorites.Service.Load"
	log := s.log.With("op", op, "user_id", userID)
	rev := s.state.State(userID).FavoritesRev()
	ids, err := s.storage.ListMovieIDs(ctx, userID)
	if err != nil {
		log.Error("Error reading favorites", "errMsg", err.Error())
		return nil, fmt.Errorf("%w: %w", ErrFavoritesUnavailable, err)
	}
	movies := s.materialize(ctx, log, ids)
	st := s.state.Dispatch(userID, state.FavoritesLoaded{Movies: movies, Rev: rev})
	if st.FavoritesRev() != rev {
		log.Debug("favorites changed while loading, reloading")
		s.tasks.Add(func() {
			s.Refresh(userID)
		})
		return st.Favorites, nil
	}
	log.Debug("favorites loaded", "ids", len(ids), "movies", len(movies))
	return movies, nil
}

func (s *Service) materialize(ctx context.Context, log *slog.Logger, ids []int64) []models.Movie {
	results := make([]*models.Movie, len(ids))
	p := pool.New().WithMaxGoroutines(s.maxWorkers)
	for i, id := range ids {
		p.Go(func() {
			details, err := s.catalog.GetDetails(ctx, int(id))
			if err != nil {
				log.Warn("Error fetching favorite movie details", "movie_id", id, "errMsg", err.Error())
				return
			}
			results[i] = &details.Movie
		})
	}
	p.Wait()
	movies := make([]models.Movie, 0, len(ids))
	for _, m := range results {
		if m != nil {
			movies = append(movies, *m)
		}
	}
	return movies
}

// Toggle flips the favorite state of movie for the user and reports the new state.
// The local state changes before the remote write; a failed write is logged and
// triggers a reconciliation with the favorites table instead of an error.
func (s *Service) Toggle(ctx context.Context, userID int64, movie models.Movie) (bool, error) {
	const op = "favorites.Service.Toggle"
	if movie.ID < 1 {
		return false, ErrInvalidMovieID
	}
	log := s.log.With("op", op, "user_id", userID, "movie_id", movie.ID)
	favorited := !s.state.State(userID).IsFavorite(movie.ID)
	s.state.Dispatch(userID, state.FavoriteToggled{Movie: movie, Favorited: favorited})

	var err error
	if favorited {
		_, err = s.storage.Insert(ctx, userID, int64(movie.ID))
		if errors.Is(err, storage.ErrConflict) {
			// the table already had the row, so it was a favorite after all
			log.Info("favorite already stored, removing it")
			favorited = false
			s.state.Dispatch(userID, state.FavoriteToggled{Movie: movie, Favorited: false})
			err = s.delete(ctx, userID, movie.ID)
		}
	} else {
		err = s.delete(ctx, userID, movie.ID)
	}
	if err != nil {
		log.Error("Error writing favorite, scheduling reconciliation", "errMsg", err.Error())
		s.tasks.Add(func() {
			s.Refresh(userID)
		})
	}
	return favorited, nil
}

func (s *Service) delete(ctx context.Context, userID int64, movieID int) error {
	err := s.storage.Delete(ctx, userID, int64(movieID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Service) IsFavorite(userID int64, movieID int) bool {
	return s.state.State(userID).IsFavorite(movieID)
}

// Favorites returns the user's local favorites list without touching the table.
func (s *Service) Favorites(userID int64) []models.Movie {
	return s.state.State(userID).Favorites
}

// Refresh reloads the user's favorites from the table outside of any request.
func (s *Service) Refresh(userID int64) {
	const op = "favorites.Service.Refresh"
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	if _, err := s.Load(ctx, userID); err != nil {
		s.log.Error("Error refreshing favorites", "op", op, "user_id", userID, "errMsg", err.Error())
	}
}
