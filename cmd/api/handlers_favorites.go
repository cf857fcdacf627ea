package main

import (
	"net/http"

	"moviedb/proj/internal/domain/models"
)

// listFavorites reloads the caller's favorites from the table. When the table
// can't be read the local list is returned instead.
func (app *Application) listFavorites(w http.ResponseWriter, r *http.Request) {
	session := sessionFromCtx(r)
	movies, err := app.Services.Favorites.Load(r.Context(), session.UserID)
	if err != nil {
		app.Http.setupLogPerReq(r).Warn("Serving local favorites", "errMsg", err.Error())
		movies = app.Services.Favorites.Favorites(session.UserID)
	}
	if movies == nil {
		movies = []models.Movie{}
	}
	app.Http.Ok(w, r, envelop{"favorites": movies}, "")
}

// toggleFavorite flips the favorite flag of the movie in the path. The body may
// carry the movie as shown on the grid; without a title the details are fetched.
func (app *Application) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := app.extractIDParam(w, r)
	if !ok {
		return
	}
	var movie models.Movie
	if r.ContentLength != 0 {
		if err := app.decodeJSON(w, r, &movie, false); err != nil {
			app.Http.BadRequest(w, r, err.Error())
			return
		}
	}
	movie.ID = id
	if movie.Title == "" {
		details, err := app.Services.Catalog.GetDetails(r.Context(), id)
		if err != nil {
			app.Http.setupLogPerReq(r).Warn("Toggling favorite without details", "errMsg", err.Error())
		} else {
			movie = details.Movie
		}
	}
	session := sessionFromCtx(r)
	favorited, err := app.Services.Favorites.Toggle(r.Context(), session.UserID, movie)
	if err != nil {
		app.Http.BadRequest(w, r, err.Error())
		return
	}
	app.Http.Ok(w, r, envelop{"movie_id": id, "is_favorite": favorited}, "")
}
