package main

import (
	"errors"
	"net/http"

	"moviedb/proj/internal/domain/filters"
	"moviedb/proj/internal/lib/validator"
	"moviedb/proj/internal/services/catalog"
	"moviedb/proj/internal/state"
)

// listMovies serves the movie grid: the popular list for an empty query, a
// search otherwise. The outcome is also applied to the caller's state.
func (app *Application) listMovies(w http.ResponseWriter, r *http.Request) {
	var q filters.CatalogQuery
	if err := app.decodeQuery(r, &q); err != nil {
		app.Http.BadRequest(w, r, err.Error())
		return
	}
	if errs := validator.ValidateStruct(app.validator, q); errs != nil {
		app.Http.UnprocessableEntity(w, r, errs)
		return
	}
	q.Normalize()
	session := sessionFromCtx(r)
	app.Services.State.Dispatch(session.UserID, state.SearchChanged{Query: q.Query, Page: q.Page})

	page, err := app.Services.Catalog.Query(r.Context(), q.Query, q.Page)
	st := app.Services.State.Dispatch(session.UserID, state.MoviesLoaded{
		Query:  q.Query,
		Page:   q.Page,
		Result: page,
		Err:    err,
	})
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidPage) {
			app.Http.UnprocessableEntity(w, r, map[string]string{"page": err.Error()})
			return
		}
		app.Http.BadGateway(w, r, err, catalog.ErrCatalogUnavailable.Error())
		return
	}
	msg := ""
	if len(page.Results) == 0 {
		msg = state.MsgNoMovies
	}
	app.Http.Ok(w, r, envelop{
		"query":         q.Query,
		"page":          page.Page,
		"total_pages":   page.TotalPages,
		"total_results": page.TotalResults,
		"movies":        st.Cards(page.Results),
	}, msg)
}

func (app *Application) getMovie(w http.ResponseWriter, r *http.Request) {
	id, ok := app.extractIDParam(w, r)
	if !ok {
		return
	}
	details, err := app.Services.Catalog.GetDetails(r.Context(), id)
	if err != nil {
		app.Http.BadGateway(w, r, err, catalog.ErrCatalogUnavailable.Error())
		return
	}
	session := sessionFromCtx(r)
	app.Http.Ok(w, r, envelop{
		"movie":       details,
		"is_favorite": app.Services.Favorites.IsFavorite(session.UserID, id),
	}, "")
}
