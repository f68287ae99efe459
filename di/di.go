// Package di assembles the application services into a container.
package di

import "github.com/defval/di"

func New() (*di.Container, error) {
	return di.New(
		configDiOptions,
		contextDiOptions,
		dbDiOptions,
		dispatcherDiOptions,
		handlersDiOptions,
		loggerDiOptions,
		servicesDiOptions,
		serverDiOptions,
	)
}
