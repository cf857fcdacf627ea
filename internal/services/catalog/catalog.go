package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"moviedb/proj/internal/domain/filters"
	"moviedb/proj/internal/domain/models"

	"golang.org/x/sync/singleflight"
)

type CatalogClient interface {
	ListPopular(ctx context.Context, page int) (*models.MoviePage, error)
	Search(ctx context.Context, query string, page int) (*models.MoviePage, error)
	GetDetails(ctx context.Context, id int) (*models.MovieDetails, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

type Service struct {
	log    *slog.Logger
	client CatalogClient
	cache  Cache
	group  singleflight.Group
}

func New(log *slog.Logger, client CatalogClient, cache Cache) *Service {
	return &Service{
		log:    log,
		client: client,
		cache:  cache,
	}
}

func (s *Service) ListPopular(ctx context.Context, page int) (*models.MoviePage, error) {
	return s.Query(ctx, "", page)
}

func (s *Service) Search(ctx context.Context, query string, page int) (*models.MoviePage, error) {
	return s.Query(ctx, query, page)
}

// Query returns one page of the popular list when query is blank, a text search otherwise.
// Results are cached per (query, page) and concurrent identical queries share one request.
func (s *Service) Query(ctx context.Context, query string, page int) (*models.MoviePage, error) {
	const op = "catalog.Service.Query"
	q := filters.New(query, page)
	if q.Page > filters.MaxPage {
		return nil, ErrInvalidPage
	}
	log := s.log.With("op", op, "query", q.Query, "page", q.Page)
	key := q.CacheKey()

	var cached models.MoviePage
	if s.lookup(ctx, log, key, &cached) {
		return &cached, nil
	}
	v, shared, err := s.shared(ctx, key, func(ctx context.Context) (any, error) {
		var (
			result *models.MoviePage
			err    error
		)
		if q.IsPopular() {
			result, err = s.client.ListPopular(ctx, q.Page)
		} else {
			result, err = s.client.Search(ctx, q.Query, q.Page)
		}
		if err != nil {
			return nil, err
		}
		s.store(ctx, log, key, result)
		return result, nil
	})
	if err != nil {
		log.Error("catalog query failed", "errMsg", err.Error())
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	log.Debug("catalog query resolved", "shared", shared)
	return clonePage(v.(*models.MoviePage)), nil
}

func (s *Service) GetDetails(ctx context.Context, id int) (*models.MovieDetails, error) {
	const op = "catalog.Service.GetDetails"
	if id < 1 {
		return nil, ErrInvalidMovieID
	}
	log := s.log.With("op", op, "id", id)
	key := filters.DetailsCacheKey(id)

	var cached models.MovieDetails
	if s.lookup(ctx, log, key, &cached) {
		return &cached, nil
	}
	v, _, err := s.shared(ctx, key, func(ctx context.Context) (any, error) {
		details, err := s.client.GetDetails(ctx, id)
		if err != nil {
			return nil, err
		}
		s.store(ctx, log, key, details)
		return details, nil
	})
	if err != nil {
		log.Error("movie details fetch failed", "errMsg", err.Error())
		return nil, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	details := *v.(*models.MovieDetails)
	return &details, nil
}

// shared runs fn once per key for all concurrent callers. fn gets a context
// that outlives any single caller; each caller stops waiting when its own ctx is done.
func (s *Service) shared(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, bool, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		return fn(detached)
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	}
}

// cache failures only cost a refetch
func (s *Service) lookup(ctx context.Context, log *slog.Logger, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	found, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		log.Warn("cache read failed", "key", key, "errMsg", err.Error())
		return false
	}
	if found {
		log.Debug("cache hit", "key", key)
	}
	return found
}

func (s *Service) store(ctx context.Context, log *slog.Logger, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		log.Warn("cache write failed", "key", key, "errMsg", err.Error())
	}
}

func clonePage(p *models.MoviePage) *models.MoviePage {
	out := *p
	out.Results = append([]models.Movie(nil), p.Results...)
	if out.Results == nil {
		out.Results = []models.Movie{}
	}
	return &out
}
