package main

import (
	"context"
	"log/slog"
	"net/http"

	"moviedb/proj/internal/config"
	"moviedb/proj/internal/lib/validator"
	"moviedb/proj/internal/services"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/gorilla/websocket"
)

type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

type Application struct {
	cfg       *config.Config
	log       *slog.Logger
	Http      *Http
	Services  *services.Services
	validator *govalidator.Validate
	decoder   *schema.Decoder
	upgrader  websocket.Upgrader
	tasks     Shutdowner
}

func NewApplication(cfg *config.Config, log *slog.Logger, svcs *services.Services, tasks Shutdowner) *Application {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	return &Application{
		cfg:       cfg,
		log:       log,
		validator: validator.New(),
		decoder:   decoder,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		Services: svcs,
		Http: &Http{
			log: log,
			cfg: cfg,
		},
		tasks: tasks,
	}
}
