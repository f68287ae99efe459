package http

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/elyby/yggdrasil/signer"
	"github.com/elyby/yggdrasil/version"
)

type SessionService interface {
	Join(accessToken string, profileId string, serverId string) error
	HasJoined(username string, serverId string, expectedIp string, remoteIp string) (*signer.ProfileResponse, error)
	Profile(profileId string, signed bool) (*signer.ProfileResponse, error)
	ProfilesByNames(names []string) ([]*signer.ProfileResponse, error)
}

type PublicKeyProvider interface {
	GetPublicKeyPem() (string, error)
}

type Sessionserver struct {
	Session     SessionService
	Signer      PublicKeyProvider
	ServerName  string
	SkinDomains []string
	Emitter
}

func (ctx *Sessionserver) Handler() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/", ctx.metadataHandler).Methods(http.MethodGet)
	router.HandleFunc("/sessionserver/session/minecraft/join", ctx.joinHandler).Methods(http.MethodPost)
	router.HandleFunc("/sessionserver/session/minecraft/hasJoined", ctx.hasJoinedHandler).Methods(http.MethodGet)
	router.HandleFunc("/sessionserver/session/minecraft/profile/{id}", ctx.profileHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/profiles/minecraft", ctx.profilesHandler).Methods(http.MethodPost)

	return router
}

// metadataHandler publishes the discovery document consumed by the
// launchers: human readable metadata, the domains whitelisted for
// textures and the public part of the signing key.
func (ctx *Sessionserver) metadataHandler(resp http.ResponseWriter, req *http.Request) {
	publicKey, err := ctx.Signer.GetPublicKeyPem()
	if err != nil {
		apiServerError(resp, err, ctx.Emitter)
		return
	}

	skinDomains := ctx.SkinDomains
	if skinDomains == nil {
		skinDomains = []string{}
	}

	apiJson(resp, http.StatusOK, map[string]interface{}{
		"meta": map[string]interface{}{
			"serverName":            ctx.ServerName,
			"implementationName":    "yggdrasil",
			"implementationVersion": version.Version(),
		},
		"skinDomains":        skinDomains,
		"signaturePublickey": publicKey,
	})
}

type joinRequest struct {
	AccessToken     string `json:"accessToken"`
	SelectedProfile string `json:"selectedProfile"`
	ServerId        string `json:"serverId"`
}

func (ctx *Sessionserver) joinHandler(resp http.ResponseWriter, req *http.Request) {
	var request joinRequest
	if !parseBody(resp, req, &request) {
		return
	}

	err := ctx.Session.Join(request.AccessToken, request.SelectedProfile, request.ServerId)
	if err != nil {
		handleAuthError(resp, err, ctx.Emitter)
		return
	}

	resp.WriteHeader(http.StatusNoContent)
}

func (ctx *Sessionserver) hasJoinedHandler(resp http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()
	username := query.Get("username")
	serverId := query.Get("serverId")
	if username == "" || serverId == "" {
		illegalArgument(resp, "")
		return
	}

	profile, err := ctx.Session.HasJoined(username, serverId, query.Get("ip"), remoteAddr(req))
	if err != nil {
		apiServerError(resp, err, ctx.Emitter)
		return
	}

	if profile == nil {
		resp.WriteHeader(http.StatusNoContent)
		return
	}

	apiJson(resp, http.StatusOK, profile)
}

func (ctx *Sessionserver) profileHandler(resp http.ResponseWriter, req *http.Request) {
	signed := true
	if unsigned, err := strconv.ParseBool(req.URL.Query().Get("unsigned")); err == nil {
		signed = !unsigned
	}

	profile, err := ctx.Session.Profile(mux.Vars(req)["id"], signed)
	if err != nil {
		apiServerError(resp, err, ctx.Emitter)
		return
	}

	if profile == nil {
		resp.WriteHeader(http.StatusNoContent)
		return
	}

	apiJson(resp, http.StatusOK, profile)
}

func (ctx *Sessionserver) profilesHandler(resp http.ResponseWriter, req *http.Request) {
	var names []string
	if err := json.NewDecoder(req.Body).Decode(&names); err != nil {
		illegalArgument(resp, "")
		return
	}

	profiles, err := ctx.Session.ProfilesByNames(names)
	if err != nil {
		handleAuthError(resp, err, ctx.Emitter)
		return
	}

	apiJson(resp, http.StatusOK, profiles)
}

// remoteAddr strips the port from the request's remote address. The ip
// is compared with the one the game server observed.
func remoteAddr(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}

	return host
}
