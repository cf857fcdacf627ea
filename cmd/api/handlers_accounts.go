package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"moviedb/proj/internal/domain/models"
	"moviedb/proj/internal/services/auth"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (app *Application) signup(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !app.readAndValidate(w, r, &req) {
		return
	}
	userID, err := app.Services.Auth.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserAlreadyExists):
			app.Http.Conflict(w, r, err.Error())
		case errors.Is(err, auth.ErrInvalidData):
			app.Http.UnprocessableEntity(w, r, map[string]string{"detail": err.Error()})
		default:
			app.Http.ServerError(w, r, err, "")
		}
		return
	}
	app.Http.Created(w, r, envelop{"user_id": userID}, "Account created, you can sign in now")
}

func (app *Application) login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !app.readAndValidate(w, r, &req) {
		return
	}
	session, err := app.Services.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			app.Http.Unauthorized(w, r, err.Error())
		case errors.Is(err, auth.ErrInvalidToken):
			app.Http.BadGateway(w, r, err, "identity provider returned an invalid token")
		default:
			app.Http.ServerError(w, r, err, "")
		}
		return
	}
	app.Services.State.Ensure(session)
	app.Http.Ok(w, r, envelop{"session": session}, "")
}

func (app *Application) logout(w http.ResponseWriter, r *http.Request) {
	session := sessionFromCtx(r)
	if err := app.Services.Auth.Logout(r.Context(), session.AccessToken); err != nil {
		app.Http.ServerError(w, r, err, "")
		return
	}
	app.Http.Ok(w, r, nil, "Signed out")
}

func (app *Application) getCurrentUser(w http.ResponseWriter, r *http.Request) {
	session := sessionFromCtx(r)
	user, err := app.Services.Auth.GetUser(r.Context(), session.UserID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			app.Http.NotFound(w, r, err.Error())
			return
		}
		app.Http.BadGateway(w, r, err, "identity provider is unavailable")
		return
	}
	app.Http.Ok(w, r, envelop{"user": user}, "")
}

// getSession answers with the caller's session, or null when there is none.
func (app *Application) getSession(w http.ResponseWriter, r *http.Request) {
	app.Http.Ok(w, r, envelop{"session": sessionFromCtx(r)}, "")
}

// sessionEvents streams the caller's session changes over a WebSocket until the
// client goes away or the user signs out.
func (app *Application) sessionEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.sessionEvents"
	session := sessionFromCtx(r)
	log := app.Http.setupLogPerReq(r).With("op", op, "user_id", session.UserID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := app.Services.Auth.Subscribe(ctx)

	conn, err := app.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already wrote the error response
		log.Warn("Error upgrading connection", "errMsg", err.Error())
		return
	}
	defer conn.Close()
	log.Info("session events stream opened", "subscription", sub.ID.String())

	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("session events stream closed")
			return
		case event, ok := <-sub.C:
			if !ok {
				return
			}
			if event.UserID != session.UserID {
				continue
			}
			if err := writeEvent(conn, event); err != nil {
				log.Warn("Error writing session event", "errMsg", err.Error())
				return
			}
			if event.SignedOut() {
				conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "signed out"),
					time.Now().Add(wsWriteWait),
				)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, event models.SessionEvent) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(event)
}
