package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (app *Application) routes() http.Handler {
	router := chi.NewRouter()
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		app.Http.NotFound(w, r, "Page not found")
	})
	router.MethodNotAllowed(app.Http.MethodNotAllowed)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(app.Recoverer)
	router.Use(app.RateLimiter)
	router.Use(app.Authenticate)
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthcheck", app.healthcheck)
		r.Get("/state", app.getState)
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/signup", app.signup)
			r.Post("/login", app.login)
			r.Get("/session", app.getSession)
			r.Group(func(r chi.Router) {
				r.Use(app.requireAuthenticatedUser)
				r.Post("/logout", app.logout)
				r.Get("/me", app.getCurrentUser)
				r.Get("/session/events", app.sessionEvents)
			})
		})
		r.Group(func(r chi.Router) {
			r.Use(app.requireAuthenticatedUser)
			r.Route("/movies", func(r chi.Router) {
				r.Get("/", app.listMovies)
				r.Get("/{id}", app.getMovie)
			})
			r.Route("/favorites", func(r chi.Router) {
				r.Get("/", app.listFavorites)
				r.Post("/{id}", app.toggleFavorite)
			})
		})
	})
	return router
}
