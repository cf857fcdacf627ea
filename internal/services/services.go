package services

import (
	"context"
	"log/slog"
	"time"

	"moviedb/proj/internal/clients/sso/grpc"
	"moviedb/proj/internal/clients/tmdb"
	"moviedb/proj/internal/config"
	"moviedb/proj/internal/domain/filters"
	"moviedb/proj/internal/domain/models"
	"moviedb/proj/internal/events"
	"moviedb/proj/internal/mails"
	"moviedb/proj/internal/services/auth"
	"moviedb/proj/internal/services/catalog"
	"moviedb/proj/internal/services/favorites"
	"moviedb/proj/internal/state"
	"moviedb/proj/internal/storage/cache"
	"moviedb/proj/internal/storage/postgres"
	dbmodels "moviedb/proj/internal/storage/postgres/models"
)

const (
	sessionEventsBuffer = 64
	preloadTimeout      = 30 * time.Second
)

type TaskExecutor interface {
	Add(task func())
}

type Services struct {
	Auth      *auth.AuthService
	Catalog   *catalog.Service
	Favorites *favorites.Service
	State     *state.Registry
	Sessions  *events.Broker[models.SessionEvent]

	sso *grpc.Client
}

func New(
	log *slog.Logger,
	cfg *config.Config,
	storage *postgres.PostgresDB,
	queryCache cache.Cache,
	taskExecutor TaskExecutor,
) *Services {
	var mailer auth.MailProvider
	if cfg.SMTP.Host != "" {
		mailer = mails.New(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Timeout,
			cfg.SMTP.Username,
			cfg.SMTP.Password,
			cfg.SMTP.Sender,
			cfg.SMTP.RetriesCount,
		)
	} else {
		log.Warn("smtp host is not configured, welcome emails are disabled")
	}
	sso, err := grpc.New(
		log,
		cfg.AppID,
		cfg.Clients.SSO.Addr,
		cfg.Clients.SSO.RetryTimeout,
		cfg.Clients.SSO.RetriesCount,
	)
	if err != nil {
		panic(err)
	}
	tmdbClient := tmdb.New(log, cfg.Catalog.BaseURL, cfg.Catalog.ApiKey, cfg.Catalog.Timeout)
	sessions := events.NewBroker[models.SessionEvent](log, sessionEventsBuffer)
	registry := state.NewRegistry(log)
	catalogService := catalog.New(log, tmdbClient, queryCache)
	svcs := &Services{
		Auth:    auth.New(log, mailer, sso, taskExecutor, sessions, cfg.AppSecret),
		Catalog: catalogService,
		Favorites: favorites.New(
			log,
			dbmodels.New(storage).Favorite,
			catalogService,
			registry,
			taskExecutor,
			cfg.Favorites.MaxDetailWorkers,
		),
		State:    registry,
		Sessions: sessions,
		sso:      sso,
	}
	svcs.WatchSessions(log, taskExecutor)
	return svcs
}

// WatchSessions fills a user's state in the background whenever it picks up a
// new session: the favorites from the table and the first popular page.
func (s *Services) WatchSessions(log *slog.Logger, tasks TaskExecutor) {
	s.State.OnSessionStart(func(userID int64) {
		tasks.Add(func() {
			s.Favorites.Refresh(userID)
		})
		tasks.Add(func() {
			s.preloadCatalog(log, userID)
		})
	})
}

func (s *Services) preloadCatalog(log *slog.Logger, userID int64) {
	const op = "services.Services.preloadCatalog"
	ctx, cancel := context.WithTimeout(context.Background(), preloadTimeout)
	defer cancel()
	q := filters.New("", filters.DefaultPage)
	page, err := s.Catalog.Query(ctx, q.Query, q.Page)
	if err != nil {
		log.Warn("Error preloading popular movies", "op", op, "user_id", userID, "errMsg", err.Error())
	}
	s.State.Update(userID, state.MoviesLoaded{Query: q.Query, Page: q.Page, Result: page, Err: err})
}

func (s *Services) Close() error {
	s.Sessions.Close()
	if s.sso != nil {
		return s.sso.Close()
	}
	return nil
}
