package main

import (
	"net/http"

	"moviedb/proj/internal/state"

	"github.com/go-chi/render"
)

func (app *Application) healthcheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, struct {
		Status  string `json:"status"`
		Debug   bool   `json:"debug"`
		Version string `json:"version"`
	}{
		Status:  "available",
		Debug:   app.cfg.Debug,
		Version: version,
	})
}

// getState renders what the front end should show for the caller right now.
func (app *Application) getState(w http.ResponseWriter, r *http.Request) {
	session := sessionFromCtx(r)
	if session == nil {
		app.Http.Ok(w, r, envelop{"state": state.State{}.Snapshot()}, "")
		return
	}
	app.Http.Ok(w, r, envelop{"state": app.Services.State.Ensure(session).Snapshot()}, "")
}
