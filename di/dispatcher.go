package di

import (
	"github.com/defval/di"
	"github.com/mono83/slf"

	"github.com/elyby/yggdrasil/auth"
	d "github.com/elyby/yggdrasil/dispatcher"
	"github.com/elyby/yggdrasil/eventsubscribers"
	"github.com/elyby/yggdrasil/http"
	"github.com/elyby/yggdrasil/session"
)

var dispatcherDiOptions = di.Options(
	di.Provide(newDispatcher,
		di.As(new(d.Emitter)),
		di.As(new(d.Subscriber)),
		di.As(new(http.Emitter)),
		di.As(new(auth.Emitter)),
		di.As(new(session.Emitter)),
		di.As(new(eventsubscribers.Subscriber)),
	),
	di.Invoke(enableEventsHandlers),
)

func newDispatcher() d.Dispatcher {
	return d.New()
}

func enableEventsHandlers(
	dispatcher d.Subscriber,
	logger slf.Logger,
	statsReporter slf.StatsReporter,
) {
	(&eventsubscribers.Logger{Logger: logger}).ConfigureWithDispatcher(dispatcher)
	if statsReporter != nil {
		(&eventsubscribers.StatsReporter{Reporter: statsReporter, Prefix: "yggdrasil"}).ConfigureWithDispatcher(dispatcher)
	}
}
