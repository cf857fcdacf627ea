package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"moviedb/proj/internal/config"
	"moviedb/proj/internal/domain/models"
	"moviedb/proj/internal/events"
	"moviedb/proj/internal/services"
	"moviedb/proj/internal/services/auth"
	"moviedb/proj/internal/services/catalog"
	"moviedb/proj/internal/services/favorites"
	"moviedb/proj/internal/state"
	"moviedb/proj/internal/storage"
	"moviedb/proj/internal/storage/cache"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const testAppSecret = "test-app-secret"

var (
	fightClub = models.Movie{ID: 550, Title: "Fight Club", VoteAverage: 8.4}
	matrix    = models.Movie{ID: 603, Title: "The Matrix", VoteAverage: 8.2}
)

type fakeSso struct {
	mu     sync.Mutex
	users  map[string]string
	ids    map[string]int64
	issued int
}

func (s *fakeSso) Register(ctx context.Context, email, username, password string) (*auth.SignupData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[email]; ok {
		return nil, auth.ErrUserAlreadyExists
	}
	s.users[email] = password
	s.ids[email] = int64(len(s.users))
	return &auth.SignupData{UserID: s.ids[email]}, nil
}

func (s *fakeSso) Login(ctx context.Context, email, password string) (*models.AuthTokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pwd, ok := s.users[email]; !ok || pwd != password {
		return nil, auth.ErrInvalidCredentials
	}
	s.issued++
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":   s.ids[email],
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"jti":   s.issued,
	})
	signed, err := token.SignedString([]byte(testAppSecret))
	if err != nil {
		return nil, err
	}
	return &models.AuthTokens{AccessToken: signed, RefreshToken: "refresh"}, nil
}

func (s *fakeSso) GetUser(ctx context.Context, params auth.GetUserParams) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for email, id := range s.ids {
		if id == params.ID {
			return &models.User{ID: id, Email: email}, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

type fakeCatalogClient struct {
	mu    sync.Mutex
	fail  bool
	calls int
}

func (c *fakeCatalogClient) setFail(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = fail
}

func (c *fakeCatalogClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *fakeCatalogClient) failing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.fail
}

func (c *fakeCatalogClient) ListPopular(ctx context.Context, page int) (*models.MoviePage, error) {
	if c.failing() {
		return nil, errors.New("catalog is down")
	}
	return &models.MoviePage{Page: page, TotalPages: 10, TotalResults: 200, Results: []models.Movie{fightClub, matrix}}, nil
}

func (c *fakeCatalogClient) Search(ctx context.Context, query string, page int) (*models.MoviePage, error) {
	if c.failing() {
		return nil, errors.New("catalog is down")
	}
	var results []models.Movie
	for _, m := range []models.Movie{fightClub, matrix} {
		if strings.Contains(strings.ToLower(m.Title), strings.ToLower(query)) {
			results = append(results, m)
		}
	}
	if results == nil {
		results = []models.Movie{}
	}
	return &models.MoviePage{Page: page, TotalPages: 1, TotalResults: len(results), Results: results}, nil
}

func (c *fakeCatalogClient) GetDetails(ctx context.Context, id int) (*models.MovieDetails, error) {
	if c.failing() {
		return nil, errors.New("catalog is down")
	}
	for _, m := range []models.Movie{fightClub, matrix} {
		if m.ID == id {
			return &models.MovieDetails{Movie: m, Runtime: 139}, nil
		}
	}
	return nil, fmt.Errorf("movie %d not found", id)
}

type memFavorites struct {
	mu   sync.Mutex
	rows map[int64][]int64
}

func (m *memFavorites) ListMovieIDs(ctx context.Context, userID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64{}, m.rows[userID]...), nil
}

func (m *memFavorites) Insert(ctx context.Context, userID, movieID int64) (*models.Favorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.rows[userID] {
		if id == movieID {
			return nil, storage.ErrConflict
		}
	}
	m.rows[userID] = append(m.rows[userID], movieID)
	return &models.Favorite{UserID: userID, MovieID: movieID, CreatedAt: time.Now()}, nil
}

func (m *memFavorites) Delete(ctx context.Context, userID, movieID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.rows[userID]
	for i, id := range ids {
		if id == movieID {
			m.rows[userID] = append(ids[:i:i], ids[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *memFavorites) count(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows[userID])
}

type syncExecutor struct{}

func (syncExecutor) Add(task func()) { task() }

func (syncExecutor) Shutdown(ctx context.Context) error { return nil }

type testDeps struct {
	catalog   *fakeCatalogClient
	favorites *memFavorites
}

func NewTestApplication(cfg *config.Config, t *testing.T) (*Application, *testDeps) {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{AppSecret: testAppSecret}
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	deps := &testDeps{
		catalog:   &fakeCatalogClient{},
		favorites: &memFavorites{rows: map[int64][]int64{}},
	}
	broker := events.NewBroker[models.SessionEvent](log, 16)
	registry := state.NewRegistry(log)
	sso := &fakeSso{users: map[string]string{}, ids: map[string]int64{}}
	catalogService := catalog.New(log, deps.catalog, cache.NewMemory(100, time.Minute))
	svcs := &services.Services{
		Auth:      auth.New(log, nil, sso, syncExecutor{}, broker, cfg.AppSecret),
		Catalog:   catalogService,
		Favorites: favorites.New(log, deps.favorites, catalogService, registry, syncExecutor{}, 2),
		State:     registry,
		Sessions:  broker,
	}
	svcs.WatchSessions(log, syncExecutor{})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	sub := svcs.Auth.Subscribe(ctx)
	go registry.Follow(ctx, sub.C)
	return NewApplication(cfg, log, svcs, syncExecutor{}), deps
}

type testResponse struct {
	Success bool                       `json:"success"`
	Message string                     `json:"message"`
	Data    map[string]json.RawMessage `json:"data"`
}

type testClient struct {
	t      *testing.T
	server *httptest.Server
	token  string
}

func newTestClient(t *testing.T, app *Application) *testClient {
	server := httptest.NewServer(app.routes())
	t.Cleanup(server.Close)
	return &testClient{t: t, server: server}
}

func (c *testClient) do(method, path string, body any) (int, testResponse) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = strings.NewReader(string(payload))
	}
	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(c.t, err)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	var out testResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	if len(raw) > 0 {
		require.NoError(c.t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (c *testClient) signIn(email, password string) *models.Session {
	c.t.Helper()
	status, _ := c.do(http.MethodPost, "/api/v1/accounts/signup", map[string]string{"email": email, "password": password})
	require.Equal(c.t, http.StatusCreated, status)
	status, resp := c.do(http.MethodPost, "/api/v1/accounts/login", map[string]string{"email": email, "password": password})
	require.Equal(c.t, http.StatusOK, status)
	var session models.Session
	require.NoError(c.t, json.Unmarshal(resp.Data["session"], &session))
	c.token = session.AccessToken
	return &session
}

func decodeField[T any](t *testing.T, resp testResponse, key string) T {
	t.Helper()
	var v T
	raw, ok := resp.Data[key]
	require.True(t, ok, "missing %q in response data", key)
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}
