package eventsubscribers

import (
	"net/http"
	"strings"

	"github.com/mono83/slf"
)

type StatsReporter struct {
	Reporter slf.StatsReporter
	Prefix   string
}

func (s *StatsReporter) ConfigureWithDispatcher(d Subscriber) {
	// Per request events
	d.Subscribe("yggdrasil:before_request", s.handleBeforeRequest)
	d.Subscribe("yggdrasil:after_request", s.handleAfterRequest)

	// Authentication events
	d.Subscribe("authentication:success", s.incCounterHandler("authentication.success"))
	d.Subscribe("authentication:failed", s.incCounterHandler("authentication.failed"))
	d.Subscribe("authentication:rate_limited", s.incCounterHandler("authentication.rate_limited"))
	d.Subscribe("authenticator:success", s.incCounterHandler("api.authentication.success"))
	d.Subscribe("authenticator:error", func(err error) {
		s.incCounter("api.authentication.failed")
	})

	// Sessions events
	d.Subscribe("sessions:created", func(accountId string) {
		s.incCounter("sessions.created")
	})
	d.Subscribe("sessions:refreshed", func(accountId string) {
		s.incCounter("sessions.refreshed")
	})
	d.Subscribe("session:join", func(profileId string, serverId string) {
		s.incCounter("sessions.join")
	})
	d.Subscribe("session:has_joined", func(profileId string, serverId string) {
		s.incCounter("sessions.has_joined")
	})
}

func (s *StatsReporter) handleBeforeRequest(req *http.Request) {
	var key string
	m := req.Method
	p := req.URL.Path
	if p == "/authserver/authenticate" {
		key = "authserver.authenticate.request"
	} else if p == "/authserver/refresh" {
		key = "authserver.refresh.request"
	} else if p == "/authserver/validate" {
		key = "authserver.validate.request"
	} else if p == "/authserver/invalidate" {
		key = "authserver.invalidate.request"
	} else if p == "/authserver/signout" {
		key = "authserver.signout.request"
	} else if p == "/sessionserver/session/minecraft/join" {
		key = "sessionserver.join.request"
	} else if p == "/sessionserver/session/minecraft/hasJoined" {
		key = "sessionserver.has_joined.request"
	} else if strings.HasPrefix(p, "/sessionserver/session/minecraft/profile/") {
		key = "sessionserver.profile.request"
	} else if p == "/api/profiles/minecraft" {
		key = "api.profiles.request"
	} else if strings.HasPrefix(p, "/textures/") {
		key = "textures.request"
	} else if m == http.MethodPut && strings.HasPrefix(p, "/api/user/profile/") {
		key = "api.user.textures.upload.request"
	} else if m == http.MethodDelete && strings.HasPrefix(p, "/api/user/profile/") {
		key = "api.user.textures.delete.request"
	} else {
		return
	}

	s.incCounter(key)
}

func (s *StatsReporter) handleAfterRequest(req *http.Request, code int) {
	var key string
	p := req.URL.Path
	if p == "/authserver/authenticate" && code == http.StatusOK {
		key = "authserver.authenticate.success"
	} else if p == "/authserver/authenticate" && code == http.StatusForbidden {
		key = "authserver.authenticate.forbidden"
	} else if p == "/authserver/refresh" && code == http.StatusOK {
		key = "authserver.refresh.success"
	} else if p == "/authserver/refresh" && code == http.StatusForbidden {
		key = "authserver.refresh.forbidden"
	} else if p == "/sessionserver/session/minecraft/hasJoined" && code == http.StatusOK {
		key = "sessionserver.has_joined.success"
	} else if p == "/sessionserver/session/minecraft/hasJoined" && code == http.StatusNoContent {
		key = "sessionserver.has_joined.miss"
	} else {
		return
	}

	s.incCounter(key)
}

func (s *StatsReporter) incCounterHandler(name string) func(...interface{}) {
	return func(...interface{}) {
		s.incCounter(name)
	}
}

func (s *StatsReporter) incCounter(name string) {
	s.Reporter.IncCounter(s.key(name), 1)
}

func (s *StatsReporter) key(name string) string {
	return strings.Join([]string{s.Prefix, name}, ".")
}
