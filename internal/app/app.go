// Package app implements the service layer: signup and sign-in, catalog
// management, reviews and comments, and user administration. Handlers in
// internal/server translate HTTP to these methods; persistence lives behind
// the interfaces in pkg/store.
package app

import (
	"time"

	"reviewbase/pkg/domain"
	"reviewbase/pkg/mail"
	"reviewbase/pkg/store"
)

// Config carries the App's collaborators. Store, Confirmations and Sessions
// are required; Mailer and Clock fall back to development defaults.
type Config struct {
	Store         store.Store
	Confirmations store.ConfirmationStore
	Sessions      store.SessionStore
	Mailer        mail.Mailer
	Clock         store.Clock
}

// App is the service layer. Methods that act on behalf of a caller take the
// resolved domain.User; a zero-value caller means anonymous.
type App struct {
	store         store.Store
	confirmations store.ConfirmationStore
	sessions      store.SessionStore
	mailer        mail.Mailer
	now           store.Clock
}

func New(cfg Config) *App {
	a := &App{
		store:         cfg.Store,
		confirmations: cfg.Confirmations,
		sessions:      cfg.Sessions,
		mailer:        cfg.Mailer,
		now:           cfg.Clock,
	}
	if a.mailer == nil {
		a.mailer = mail.LogMailer{}
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// UserFromToken resolves a bearer token into the user it belongs to.
func (a *App) UserFromToken(token string) (domain.User, bool, error) {
	userID, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false, err
	}
	return a.store.GetUserByID(userID)
}
