package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/elyby/yggdrasil/auth"
)

type AuthService interface {
	Authenticate(email string, password string, clientToken string, requestUser bool) (*auth.AuthenticateResult, error)
	Refresh(accessToken string, clientToken string, requestedProfileId string, requestUser bool) (*auth.RefreshResult, error)
	Validate(accessToken string, clientToken string) error
	Invalidate(accessToken string) error
	SignOut(email string, password string) error
}

type Authserver struct {
	Auth AuthService
	Emitter
}

func (ctx *Authserver) Handler() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/authserver/authenticate", ctx.authenticateHandler).Methods(http.MethodPost)
	router.HandleFunc("/authserver/refresh", ctx.refreshHandler).Methods(http.MethodPost)
	router.HandleFunc("/authserver/validate", ctx.validateHandler).Methods(http.MethodPost)
	router.HandleFunc("/authserver/invalidate", ctx.invalidateHandler).Methods(http.MethodPost)
	router.HandleFunc("/authserver/signout", ctx.signoutHandler).Methods(http.MethodPost)

	return router
}

type agentData struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}

type authenticateRequest struct {
	Agent       *agentData `json:"agent"`
	Username    string     `json:"username"`
	Password    string     `json:"password"`
	ClientToken string     `json:"clientToken"`
	RequestUser bool       `json:"requestUser"`
}

func (ctx *Authserver) authenticateHandler(resp http.ResponseWriter, req *http.Request) {
	var request authenticateRequest
	if !parseBody(resp, req, &request) {
		return
	}

	result, err := ctx.Auth.Authenticate(request.Username, request.Password, request.ClientToken, request.RequestUser)
	if err != nil {
		handleAuthError(resp, err, ctx.Emitter)
		return
	}

	apiJson(resp, http.StatusOK, result)
}

type refreshRequest struct {
	AccessToken     string `json:"accessToken"`
	ClientToken     string `json:"clientToken"`
	SelectedProfile *struct {
		Id string `json:"id"`
	} `json:"selectedProfile"`
	RequestUser bool `json:"requestUser"`
}

func (ctx *Authserver) refreshHandler(resp http.ResponseWriter, req *http.Request) {
	var request refreshRequest
	if !parseBody(resp, req, &request) {
		return
	}

	var requestedProfileId string
	if request.SelectedProfile != nil {
		requestedProfileId = request.SelectedProfile.Id
	}

	result, err := ctx.Auth.Refresh(request.AccessToken, request.ClientToken, requestedProfileId, request.RequestUser)
	if err != nil {
		handleAuthError(resp, err, ctx.Emitter)
		return
	}

	apiJson(resp, http.StatusOK, result)
}

type tokenPairRequest struct {
	AccessToken string `json:"accessToken"`
	ClientToken string `json:"clientToken"`
}

func (ctx *Authserver) validateHandler(resp http.ResponseWriter, req *http.Request) {
	var request tokenPairRequest
	if !parseBody(resp, req, &request) {
		return
	}

	err := ctx.Auth.Validate(request.AccessToken, request.ClientToken)
	if err != nil {
		handleAuthError(resp, err, ctx.Emitter)
		return
	}

	resp.WriteHeader(http.StatusNoContent)
}

func (ctx *Authserver) invalidateHandler(resp http.ResponseWriter, req *http.Request) {
	var request tokenPairRequest
	if !parseBody(resp, req, &request) {
		return
	}

	err := ctx.Auth.Invalidate(request.AccessToken)
	if err != nil {
		handleAuthError(resp, err, ctx.Emitter)
		return
	}

	resp.WriteHeader(http.StatusNoContent)
}

type signoutRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (ctx *Authserver) signoutHandler(resp http.ResponseWriter, req *http.Request) {
	var request signoutRequest
	if !parseBody(resp, req, &request) {
		return
	}

	err := ctx.Auth.SignOut(request.Username, request.Password)
	if err != nil {
		handleAuthError(resp, err, ctx.Emitter)
		return
	}

	resp.WriteHeader(http.StatusNoContent)
}

// parseBody decodes the JSON body into target and reports the protocol
// bad request response when the body cannot be parsed.
func parseBody(resp http.ResponseWriter, req *http.Request, target interface{}) bool {
	err := json.NewDecoder(req.Body).Decode(target)
	if err != nil {
		illegalArgument(resp, "")
		return false
	}

	return true
}
