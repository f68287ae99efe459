package http

import (
	"bytes"
	"image/png"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/thedevsaddam/govalidator"

	"github.com/elyby/yggdrasil/model"
)

const maxTextureSize = 24576

type SessionsFinder interface {
	FindValidByToken(accessToken string) (*model.Session, error)
}

type TexturesStore interface {
	Save(data []byte) (string, error)
	FindByHash(hash string) ([]byte, error)
}

type ProfileTexturesUpdater interface {
	FindById(id string) (*model.Profile, error)
	UpdateSkin(id string, skinHash string, isSlim bool) error
	UpdateCape(id string, capeHash string) error
}

// Textures serves the content-addressed texture blobs and lets an
// authenticated session manage the textures of its own profile.
type Textures struct {
	Sessions SessionsFinder
	Store    TexturesStore
	Profiles ProfileTexturesUpdater
	Emitter
}

func (ctx *Textures) Handler() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/textures/{hash}", ctx.getTextureHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/user/profile/{id}/skin", ctx.putSkinHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/user/profile/{id}/skin", ctx.deleteSkinHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/user/profile/{id}/cape", ctx.putCapeHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/user/profile/{id}/cape", ctx.deleteCapeHandler).Methods(http.MethodDelete)

	return router
}

func (ctx *Textures) getTextureHandler(resp http.ResponseWriter, req *http.Request) {
	data, err := ctx.Store.FindByHash(mux.Vars(req)["hash"])
	if err != nil {
		apiServerError(resp, err, ctx.Emitter)
		return
	}

	if data == nil {
		resp.WriteHeader(http.StatusNotFound)
		return
	}

	resp.Header().Set("Content-Type", "image/png")
	resp.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	_, _ = resp.Write(data)
}

func (ctx *Textures) putSkinHandler(resp http.ResponseWriter, req *http.Request) {
	profile := ctx.authorizeProfile(resp, req)
	if profile == nil {
		return
	}

	data, validationErrors := readTextureUpload(req, [][2]int{{64, 64}, {64, 32}})
	if validationErrors != nil {
		apiBadRequest(resp, validationErrors)
		return
	}

	hash, err := ctx.Store.Save(data)
	if err != nil {
		apiServerError(resp, err, ctx.Emitter)
		return
	}

	isSlim := strings.EqualFold(req.Form.Get("model"), "slim")
	err = ctx.Profiles.UpdateSkin(profile.Id, hash, isSlim)
	if err != nil {
		apiServerError(resp, err, ctx.Emitter)
		return
	}

	resp.WriteHeader(http.StatusNoContent)
}

func (ctx *Textures) deleteSkinHandler(resp http.ResponseWriter, req *http.Request) {
	profile := ctx.authorizeProfile(resp, req)
	if profile == nil {
		return
	}

	err := ctx.Profiles.UpdateSkin(profile.Id, "", false)
	if err != nil {
		apiServerError(resp, err, ctx.Emitter)
		return
	}

	resp.WriteHeader(http.StatusNoContent)
}

func (ctx *Textures) putCapeHandler(resp http.ResponseWriter, req *http.Request) {
	profile := ctx.authorizeProfile(resp, req)
	if profile == nil {
		return
	}

	data, validationErrors := readTextureUpload(req, [][2]int{{22, 17}, {64, 32}})
	if validationErrors != nil {
		apiBadRequest(resp, validationErrors)
		return
	}

	hash, err := ctx.Store.Save(data)
	if err != nil {
		apiServerError(resp, err, ctx.Emitter)
		return
	}

	err = ctx.Profiles.UpdateCape(profile.Id, hash)
	if err != nil {
		apiServerError(resp, err, ctx.Emitter)
		return
	}

	resp.WriteHeader(http.StatusNoContent)
}

func (ctx *Textures) deleteCapeHandler(resp http.ResponseWriter, req *http.Request) {
	profile := ctx.authorizeProfile(resp, req)
	if profile == nil {
		return
	}

	err := ctx.Profiles.UpdateCape(profile.Id, "")
	if err != nil {
		apiServerError(resp, err, ctx.Emitter)
		return
	}

	resp.WriteHeader(http.StatusNoContent)
}

// authorizeProfile resolves the bearer access token into a valid
// session whose attached profile is the requested one. An unknown
// token, a detached session and a foreign profile are reported
// identically.
func (ctx *Textures) authorizeProfile(resp http.ResponseWriter, req *http.Request) *model.Profile {
	bearerToken := req.Header.Get("Authorization")
	if len(bearerToken) < 7 || !strings.EqualFold(bearerToken[0:7], "BEARER ") {
		forbiddenOperation(resp, "Invalid token.")
		return nil
	}

	userSession, err := ctx.Sessions.FindValidByToken(bearerToken[7:])
	if err != nil {
		apiServerError(resp, err, ctx.Emitter)
		return nil
	}

	if userSession == nil {
		forbiddenOperation(resp, "Invalid token.")
		return nil
	}

	profile, err := ctx.Profiles.FindById(mux.Vars(req)["id"])
	if err != nil {
		apiServerError(resp, err, ctx.Emitter)
		return nil
	}

	if profile == nil || userSession.ProfileId != profile.Id {
		forbiddenOperation(resp, "Invalid token.")
		return nil
	}

	return profile
}

// readTextureUpload validates the multipart upload and returns the
// png bytes. The image must decode as png and its dimensions must be
// one of the allowed pairs.
func readTextureUpload(req *http.Request, allowedSizes [][2]int) ([]byte, map[string][]string) {
	validator := govalidator.New(govalidator.Options{
		Request: req,
		Rules: govalidator.MapData{
			"file:file": {"required", "ext:png", "size:24576", "mime:image/png"},
			"model":     {},
		},
		RequiredDefault: false,
		FormSize:        maxTextureSize * 2,
	})
	validationResults := validator.Validate()
	if len(validationResults) != 0 {
		return nil, validationResults
	}

	file, _, err := req.FormFile("file")
	if err != nil {
		return nil, map[string][]string{
			"file": {"The file field is required"},
		}
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxTextureSize+1))
	if err != nil || len(data) > maxTextureSize {
		return nil, map[string][]string{
			"file": {"The file must not exceed 24576 bytes"},
		}
	}

	config, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, map[string][]string{
			"file": {"The file must be a valid png image"},
		}
	}

	for _, size := range allowedSizes {
		if config.Width == size[0] && config.Height == size[1] {
			return data, nil
		}
	}

	return nil, map[string][]string{
		"file": {"The image has invalid dimensions"},
	}
}
