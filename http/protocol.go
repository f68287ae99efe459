package http

import (
	"net/http"

	"github.com/elyby/yggdrasil/auth"
)

// The protocol reports every failure as {error, errorMessage} with the
// status code of the exception kind. Launchers rely both on the codes
// and on the exact error names.
type errorResponse struct {
	Error        string `json:"error"`
	ErrorMessage string `json:"errorMessage"`
}

func forbiddenOperation(resp http.ResponseWriter, message string) {
	apiJson(resp, http.StatusForbidden, &errorResponse{
		Error:        "ForbiddenOperationException",
		ErrorMessage: message,
	})
}

func illegalArgument(resp http.ResponseWriter, message string) {
	apiJson(resp, http.StatusBadRequest, &errorResponse{
		Error:        "IllegalArgumentException",
		ErrorMessage: message,
	})
}

// handleAuthError maps the typed service errors onto the protocol
// responses. Anything unrecognized is a plain server error.
func handleAuthError(resp http.ResponseWriter, err error, emitter Emitter) {
	switch err.(type) {
	case *auth.InvalidCredentialsError, *auth.InvalidTokenError:
		forbiddenOperation(resp, err.Error())
	case *auth.TooManyProfilesRequestedError:
		// The batch endpoint reports its cap with a bare Forbidden,
		// not the usual ForbiddenOperationException.
		apiJson(resp, http.StatusForbidden, &errorResponse{
			Error:        "Forbidden",
			ErrorMessage: err.Error(),
		})
	case *auth.IllegalArgumentError:
		illegalArgument(resp, err.Error())
	default:
		apiServerError(resp, err, emitter)
	}
}
