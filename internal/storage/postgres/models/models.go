package models

import "moviedb/proj/internal/storage/postgres"

type Models struct {
	Favorite *FavoriteModel
}

func New(db *postgres.PostgresDB) *Models {
	return &Models{
		Favorite: &FavoriteModel{db.Conn},
	}
}
