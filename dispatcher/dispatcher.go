// Package dispatcher decouples the services emitting domain events
// from the subscribers consuming them (loggers, stats reporters).
package dispatcher

import "github.com/asaskevich/EventBus"

type Emitter interface {
	Emit(name string, args ...interface{})
}

type Subscriber interface {
	Subscribe(name string, fn interface{})
}

type Dispatcher interface {
	Emitter
	Subscriber
}

type localEventDispatcher struct {
	bus EventBus.Bus
}

func (d *localEventDispatcher) Subscribe(name string, fn interface{}) {
	_ = d.bus.Subscribe(name, fn)
}

func (d *localEventDispatcher) Emit(name string, args ...interface{}) {
	d.bus.Publish(name, args...)
}

func New() Dispatcher {
	return &localEventDispatcher{
		bus: EventBus.New(),
	}
}
