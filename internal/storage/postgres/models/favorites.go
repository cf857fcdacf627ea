package models

import (
	"context"
	"errors"

	"moviedb/proj/internal/domain/models"
	"moviedb/proj/internal/storage"
	"moviedb/proj/internal/storage/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FavoriteModel struct {
	DB *pgxpool.Pool
}

// ListMovieIDs returns the user's favorite movie IDs, oldest first.
func (m *FavoriteModel) ListMovieIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := m.DB.Query(
		ctx,
		`SELECT movie_id FROM favorites WHERE user_id = $1 ORDER BY created_at ASC, movie_id ASC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (m *FavoriteModel) Insert(ctx context.Context, userID, movieID int64) (*models.Favorite, error) {
	rows, _ := m.DB.Query(
		ctx,
		"INSERT INTO favorites (user_id, movie_id) VALUES ($1, $2) RETURNING user_id, movie_id, created_at",
		userID,
		movieID,
	)
	favorite, err := pgx.CollectOneRow(rows, pgx.RowToStructByPos[models.Favorite])
	if err != nil {
		var pgxErr *pgconn.PgError
		if errors.As(err, &pgxErr) && pgxErr.Code == postgres.ErrConflictCode {
			return nil, storage.ErrConflict
		}
		return nil, err
	}
	return &favorite, nil
}

func (m *FavoriteModel) Delete(ctx context.Context, userID, movieID int64) error {
	status, err := m.DB.Exec(ctx, "DELETE FROM favorites WHERE user_id = $1 AND movie_id = $2", userID, movieID)
	if err != nil {
		return err
	}
	if status.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
