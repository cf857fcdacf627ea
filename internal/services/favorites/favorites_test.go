package favorites

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"moviedb/proj/internal/domain/models"
	"moviedb/proj/internal/state"
	"moviedb/proj/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStorage struct {
	mu        sync.Mutex
	rows      map[int64][]int64
	failWrite bool
	failRead  bool
	inserts   int
	deletes   int
	// runs after the ids were read and before they are returned
	afterList func()
}

func newMemStorage() *memStorage {
	return &memStorage{rows: map[int64][]int64{}}
}

func (m *memStorage) ListMovieIDs(ctx context.Context, userID int64) ([]int64, error) {
	m.mu.Lock()
	if m.failRead {
		m.mu.Unlock()
		return nil, errors.New("connection reset")
	}
	ids := append([]int64{}, m.rows[userID]...)
	hook := m.afterList
	m.afterList = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	return ids, nil
}

func (m *memStorage) Insert(ctx context.Context, userID, movieID int64) (*models.Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return nil, errors.New("connection reset")
	}
	for _, id := range m.rows[userID] {
		if id == movieID {
			return nil, storage.ErrConflict
		}
	}
	m.inserts++
	m.rows[userID] = append(m.rows[userID], movieID)
	return &models.Favorite{UserID: userID, MovieID: movieID, CreatedAt: time.Now()}, nil
}

func (m *memStorage) Delete(ctx context.Context, userID, movieID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errors.New("connection reset")
	}
	ids := m.rows[userID]
	for i, id := range ids {
		if id == movieID {
			m.deletes++
			m.rows[userID] = append(ids[:i:i], ids[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *memStorage) count(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows[userID])
}

type fakeCatalog struct {
	missing map[int]bool
}

func (c *fakeCatalog) GetDetails(ctx context.Context, id int) (*models.MovieDetails, error) {
	if c.missing[id] {
		return nil, fmt.Errorf("movie %d: not found", id)
	}
	title := fmt.Sprintf("Movie %d", id)
	if id == 550 {
		title = "Fight Club"
	}
	return &models.MovieDetails{Movie: models.Movie{ID: id, Title: title}}, nil
}

type syncExecutor struct{}

func (syncExecutor) Add(task func()) { task() }

const userID int64 = 7

var fightClub = models.Movie{ID: 550, Title: "Fight Club"}

func newTestService(store *memStorage, catalog *fakeCatalog) (*Service, *state.Registry) {
	registry := state.NewRegistry(slog.Default())
	registry.Dispatch(userID, state.SessionChanged{Session: &models.Session{UserID: userID, AccessToken: "t"}})
	return New(slog.Default(), store, catalog, registry, syncExecutor{}, 4), registry
}

func TestToggleAddsAndRemovesOneRow(t *testing.T) {
	store := newMemStorage()
	svc, _ := newTestService(store, &fakeCatalog{})
	ctx := context.Background()

	favorited, err := svc.Toggle(ctx, userID, fightClub)
	require.NoError(t, err)
	assert.True(t, favorited)
	assert.True(t, svc.IsFavorite(userID, 550))
	assert.Equal(t, 1, store.count(userID))
	assert.Equal(t, 1, store.inserts)

	favorited, err = svc.Toggle(ctx, userID, fightClub)
	require.NoError(t, err)
	assert.False(t, favorited)
	assert.False(t, svc.IsFavorite(userID, 550))
	assert.Equal(t, 0, store.count(userID))
	assert.Empty(t, svc.Favorites(userID))
}

func TestLoadAfterFavoriteAndOutOfBandDelete(t *testing.T) {
	store := newMemStorage()
	svc, _ := newTestService(store, &fakeCatalog{})
	ctx := context.Background()

	_, err := svc.Toggle(ctx, userID, fightClub)
	require.NoError(t, err)

	movies, err := svc.Load(ctx, userID)
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, 550, movies[0].ID)
	assert.Equal(t, "Fight Club", movies[0].Title)

	require.NoError(t, store.Delete(ctx, userID, 550))
	movies, err = svc.Load(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, movies)
	assert.False(t, svc.IsFavorite(userID, 550))
}

func TestLoadPreservesOrderAndSkipsMissingDetails(t *testing.T) {
	store := newMemStorage()
	store.rows[userID] = []int64{13, 550, 603, 680, 27205}
	svc, _ := newTestService(store, &fakeCatalog{missing: map[int]bool{603: true}})

	movies, err := svc.Load(context.Background(), userID)
	require.NoError(t, err)
	ids := make([]int, 0, len(movies))
	for _, m := range movies {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []int{13, 550, 680, 27205}, ids)
}

func TestLoadReadFailure(t *testing.T) {
	store := newMemStorage()
	store.failRead = true
	svc, _ := newTestService(store, &fakeCatalog{})
	_, err := svc.Load(context.Background(), userID)
	assert.ErrorIs(t, err, ErrFavoritesUnavailable)
}

func TestFailedWriteIsReconciled(t *testing.T) {
	store := newMemStorage()
	svc, _ := newTestService(store, &fakeCatalog{})
	ctx := context.Background()

	store.failWrite = true
	favorited, err := svc.Toggle(ctx, userID, fightClub)
	require.NoError(t, err)
	assert.True(t, favorited)
	// the local state was rebuilt from the table, which never got the row
	assert.False(t, svc.IsFavorite(userID, 550))
	assert.Equal(t, 0, store.count(userID))
}

func TestToggleStoredFavoriteMissingLocally(t *testing.T) {
	store := newMemStorage()
	store.rows[userID] = []int64{550}
	svc, _ := newTestService(store, &fakeCatalog{})

	favorited, err := svc.Toggle(context.Background(), userID, fightClub)
	require.NoError(t, err)
	assert.False(t, favorited)
	assert.False(t, svc.IsFavorite(userID, 550))
	assert.Equal(t, 0, store.count(userID))
	assert.Equal(t, 0, store.inserts)
	assert.Equal(t, 1, store.deletes)
}

func TestLoadDoesNotOverwriteConcurrentToggle(t *testing.T) {
	store := newMemStorage()
	svc, _ := newTestService(store, &fakeCatalog{})
	ctx := context.Background()

	store.afterList = func() {
		_, err := svc.Toggle(ctx, userID, fightClub)
		require.NoError(t, err)
	}
	movies, err := svc.Load(ctx, userID)
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, 550, movies[0].ID)
	assert.True(t, svc.IsFavorite(userID, 550))
	assert.Equal(t, 1, store.count(userID))
}

func TestToggleInvalidMovie(t *testing.T) {
	svc, _ := newTestService(newMemStorage(), &fakeCatalog{})
	_, err := svc.Toggle(context.Background(), userID, models.Movie{})
	assert.ErrorIs(t, err, ErrInvalidMovieID)
}
