// Package http carries the web layer: the authserver and sessionserver
// protocol endpoints, the textures endpoints and the management api.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/mono83/slf"
	"github.com/mono83/slf/wd"
)

type Emitter interface {
	Emit(name string, args ...interface{})
}

// StartServer runs the server until the context is cancelled, then
// gives in-flight requests a short deadline to complete.
func StartServer(ctx context.Context, server *http.Server, logger slf.Logger) {
	srvErr := make(chan error, 1)
	go func() {
		logger.Info("Starting the server on :addr", wd.StringParam("addr", server.Addr))
		srvErr <- server.ListenAndServe()
		close(srvErr)
	}()

	select {
	case err := <-srvErr:
		logger.Error("Error in the server: :err", wd.ErrParam(err))
	case <-ctx.Done():
		logger.Info("Got stop signal, starting graceful shutdown")

		stopCtx, cancelFunc := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancelFunc()

		_ = server.Shutdown(stopCtx)

		logger.Info("Graceful shutdown succeed, exiting")
	}
}

type Authenticator interface {
	Authenticate(req *http.Request, scope Scope) error
}

func CreateAuthenticationMiddleware(authenticator Authenticator, scope Scope) mux.MiddlewareFunc {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
			err := authenticator.Authenticate(req, scope)
			if err != nil {
				apiForbidden(resp, err.Error())
				return
			}

			handler.ServeHTTP(resp, req)
		})
	}
}

// CreateRequestEventsMiddleware emits "<prefix>:before_request" with
// the request and "<prefix>:after_request" with the request and the
// resulting status code.
func CreateRequestEventsMiddleware(emitter Emitter, prefix string) mux.MiddlewareFunc {
	beforeTopic := strings.Join([]string{prefix, "before_request"}, ":")
	afterTopic := strings.Join([]string{prefix, "after_request"}, ":")

	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
			emitter.Emit(beforeTopic, req)

			writer := &statusCapturerWriter{ResponseWriter: resp}
			handler.ServeHTTP(writer, req)

			emitter.Emit(afterTopic, req, writer.statusCode())
		})
	}
}

type statusCapturerWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusCapturerWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusCapturerWriter) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}

	return w.status
}

func NotFoundHandler(response http.ResponseWriter, _ *http.Request) {
	data, _ := json.Marshal(map[string]string{
		"status":  "404",
		"message": "Not Found",
	})

	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(http.StatusNotFound)
	_, _ = response.Write(data)
}

func apiJson(resp http.ResponseWriter, status int, data interface{}) {
	serialized, _ := json.Marshal(data)
	resp.Header().Set("Content-Type", "application/json")
	resp.WriteHeader(status)
	_, _ = resp.Write(serialized)
}

func apiBadRequest(resp http.ResponseWriter, errorsPerField map[string][]string) {
	apiJson(resp, http.StatusBadRequest, map[string]interface{}{
		"errors": errorsPerField,
	})
}

func apiNotFound(resp http.ResponseWriter, reason string) {
	apiJson(resp, http.StatusNotFound, map[string]interface{}{
		"error": reason,
	})
}

func apiForbidden(resp http.ResponseWriter, reason string) {
	apiJson(resp, http.StatusForbidden, map[string]interface{}{
		"error": reason,
	})
}

var internalServerError = []byte("Internal server error")

func apiServerError(resp http.ResponseWriter, err error, emitter Emitter) {
	if emitter != nil {
		emitter.Emit("yggdrasil:error", err)
	}

	resp.Header().Set("Content-Type", "text/plain")
	resp.WriteHeader(http.StatusInternalServerError)
	_, _ = resp.Write(internalServerError)
}
