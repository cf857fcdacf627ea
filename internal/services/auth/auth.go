package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"moviedb/proj/internal/domain/models"
	"moviedb/proj/internal/events"

	"github.com/golang-jwt/jwt/v5"
)

type MailProvider interface {
	Send(recipient string, tmplName string, tmplData any) error
}

type GetUserParams struct {
	ID       int64
	Email    string
	IsActive bool
}

type SignupData struct {
	UserID          int64
	ActivationToken string
}

type SsoProvider interface {
	Register(ctx context.Context, email, username, password string) (*SignupData, error)
	Login(ctx context.Context, email, password string) (*models.AuthTokens, error)
	GetUser(ctx context.Context, params GetUserParams) (*models.User, error)
}

type TaskExecutor interface {
	Add(task func())
}

type SessionEvents interface {
	Publish(event models.SessionEvent)
	Subscribe(ctx context.Context) *events.Subscription[models.SessionEvent]
}

// AuthService is the session holder. It keeps the sessions issued through the
// identity provider and publishes a SessionEvent on every change.
type AuthService struct {
	log          *slog.Logger
	Mailer       MailProvider
	sso          SsoProvider
	taskExecutor TaskExecutor
	events       SessionEvents
	secret       []byte

	mu       sync.RWMutex
	sessions map[string]*models.Session
}

func New(
	log *slog.Logger,
	mailer MailProvider,
	ssoProvider SsoProvider,
	taskExecutor TaskExecutor,
	sessionEvents SessionEvents,
	appSecret string,
) *AuthService {
	return &AuthService{
		log:          log,
		Mailer:       mailer,
		sso:          ssoProvider,
		taskExecutor: taskExecutor,
		events:       sessionEvents,
		secret:       []byte(appSecret),
		sessions:     make(map[string]*models.Session),
	}
}

func (a *AuthService) sendWelcomeEmail(email, username string) {
	a.log.Info("sending welcome email")
	err := a.Mailer.Send(email, "user_welcome.html", map[string]any{
		"username": username,
	})
	if err != nil {
		a.log.Error("Error sending welcome email", "errMsg", err.Error())
	}
}

func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

func (a *AuthService) Signup(ctx context.Context, email, password string) (int64, error) {
	const op = "auth.AuthService.Signup"
	log := a.log.With("op", op, "email", email)
	username := usernameFromEmail(email)
	data, err := a.sso.Register(ctx, email, username, password)
	if err != nil {
		log.Error("Error calling Sso.Register", "errMsg", err.Error())
		return 0, err
	}
	if a.Mailer != nil {
		a.taskExecutor.Add(func() {
			a.sendWelcomeEmail(email, username)
		})
	}
	return data.UserID, nil
}

func (a *AuthService) Login(ctx context.Context, email, password string) (*models.Session, error) {
	const op = "auth.AuthService.Login"
	log := a.log.With("op", op, "email", email)
	tokens, err := a.sso.Login(ctx, email, password)
	if err != nil {
		log.Error("Error calling Sso.Login", "errMsg", err.Error())
		return nil, err
	}
	session, err := a.sessionFromTokens(tokens)
	if err != nil {
		log.Error("Error parsing access token", "errMsg", err.Error())
		return nil, err
	}
	if session.Email == "" {
		session.Email = email
	}
	stored := *session
	a.mu.Lock()
	a.sessions[session.AccessToken] = &stored
	a.mu.Unlock()
	log.Info("user signed in", "user_id", session.UserID)
	a.publish(session.UserID, session, "")
	return session, nil
}

// Logout drops the session bound to token. Unknown tokens are ignored.
func (a *AuthService) Logout(ctx context.Context, token string) error {
	const op = "auth.AuthService.Logout"
	log := a.log.With("op", op)
	a.mu.Lock()
	session, ok := a.sessions[token]
	if !ok {
		a.mu.Unlock()
		log.Debug("logout with unknown token")
		return nil
	}
	delete(a.sessions, token)
	remaining := a.latestSessionLocked(session.UserID)
	a.mu.Unlock()
	log.Info("user signed out", "user_id", session.UserID)
	a.publish(session.UserID, remaining, token)
	return nil
}

// GetSession returns the live session bound to token, or nil when there is none.
func (a *AuthService) GetSession(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, nil
	}
	a.mu.RLock()
	session, ok := a.sessions[token]
	a.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if session.IsExpired() {
		a.expire(token)
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (a *AuthService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	const op = "auth.AuthService.GetUser"
	user, err := a.sso.GetUser(ctx, GetUserParams{ID: userID})
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			a.log.Error("Error calling Sso.GetUser", "op", op, "errMsg", err.Error())
		}
		return nil, err
	}
	return user, nil
}

// Subscribe returns a cancellable stream of session changes for every user.
func (a *AuthService) Subscribe(ctx context.Context) *events.Subscription[models.SessionEvent] {
	return a.events.Subscribe(ctx)
}

// SweepExpired drops every expired session and reports how many were removed.
func (a *AuthService) SweepExpired() int {
	a.mu.RLock()
	var expired []string
	for token, session := range a.sessions {
		if session.IsExpired() {
			expired = append(expired, token)
		}
	}
	a.mu.RUnlock()
	for _, token := range expired {
		a.expire(token)
	}
	return len(expired)
}

func (a *AuthService) RunExpiryLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.SweepExpired(); n > 0 {
				a.log.Info("expired sessions removed", "count", n)
			}
		}
	}
}

func (a *AuthService) expire(token string) {
	a.mu.Lock()
	session, ok := a.sessions[token]
	if !ok {
		a.mu.Unlock()
		return
	}
	delete(a.sessions, token)
	remaining := a.latestSessionLocked(session.UserID)
	a.mu.Unlock()
	a.log.Info("session expired", "user_id", session.UserID)
	a.publish(session.UserID, remaining, token)
}

// latestSessionLocked returns another live session of the user, if any.
func (a *AuthService) latestSessionLocked(userID int64) *models.Session {
	var latest *models.Session
	for _, s := range a.sessions {
		if s.UserID != userID || s.IsExpired() {
			continue
		}
		if latest == nil || s.ExpiresAt.After(latest.ExpiresAt) {
			latest = s
		}
	}
	return latest
}

func (a *AuthService) publish(userID int64, session *models.Session, revoked string) {
	if a.events == nil {
		return
	}
	event := models.SessionEvent{UserID: userID, At: time.Now().UTC(), Revoked: revoked}
	if session != nil {
		copied := *session
		event.Session = &copied
	}
	a.events.Publish(event)
}

func (a *AuthService) sessionFromTokens(tokens *models.AuthTokens) (*models.Session, error) {
	parsed, err := jwt.Parse(
		tokens.AccessToken,
		func(token *jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	uid, ok := claims["uid"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: missing uid claim", ErrInvalidToken)
	}
	session := &models.Session{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		UserID:       int64(uid),
	}
	if email, ok := claims["email"].(string); ok {
		session.Email = email
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		session.ExpiresAt = exp.Time
	}
	return session, nil
}
