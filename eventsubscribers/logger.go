// Package eventsubscribers attaches the observability side effects to
// the domain events: logging, stats reporting and health checks.
package eventsubscribers

import (
	"github.com/mono83/slf"
	"github.com/mono83/slf/wd"
)

type Subscriber interface {
	Subscribe(name string, fn interface{})
}

type Logger struct {
	slf.Logger
}

func (l *Logger) ConfigureWithDispatcher(d Subscriber) {
	d.Subscribe("yggdrasil:error", l.handleError)
	d.Subscribe("authenticator:error", l.handleAuthenticatorError)
	d.Subscribe("authentication:rate_limited", l.handleRateLimited)
	d.Subscribe("sessions:created", l.handleSessionCreated)
	d.Subscribe("sessions:refreshed", l.handleSessionRefreshed)
}

func (l *Logger) handleError(err error) {
	l.Error("Unhandled error on request serving: :err", wd.ErrParam(err))
}

func (l *Logger) handleAuthenticatorError(err error) {
	l.Warning("Cannot authenticate api request: :err", wd.ErrParam(err))
}

func (l *Logger) handleRateLimited(email string) {
	// The email is not logged to keep credentials-related data
	// out of the log storage.
	l.Warning("Too many failed login attempts for an account")
}

func (l *Logger) handleSessionCreated(accountId string) {
	l.Debug("Issued a new session for :accountId", wd.StringParam("accountId", accountId))
}

func (l *Logger) handleSessionRefreshed(accountId string) {
	l.Debug("Refreshed a session for :accountId", wd.StringParam("accountId", accountId))
}
