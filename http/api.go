package http

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/gorilla/mux"
	"github.com/thedevsaddam/govalidator"

	"github.com/elyby/yggdrasil/account"
	"github.com/elyby/yggdrasil/model"
	"github.com/elyby/yggdrasil/profiles"
)

var regexUuidAny = regexp.MustCompile("(?i)^[0-9a-f]{8}-?[0-9a-f]{4}-?[0-9a-f]{4}-?[0-9a-f]{4}-?[0-9a-f]{12}$")
var regexProfileName = regexp.MustCompile("^[A-Za-z0-9_]{3,16}$")

func init() {
	// Add ability to validate any possible uuid form
	govalidator.AddCustomRule("uuid_any", func(field string, rule string, message string, value interface{}) error {
		str := value.(string)
		if !regexUuidAny.MatchString(str) {
			if message == "" {
				message = fmt.Sprintf("The %s field must contain valid UUID", field)
			}

			return errors.New(message)
		}

		return nil
	})

	govalidator.AddCustomRule("profile_name", func(field string, rule string, message string, value interface{}) error {
		str := value.(string)
		if !regexProfileName.MatchString(str) {
			if message == "" {
				message = fmt.Sprintf("The %s field must be a valid player name", field)
			}

			return errors.New(message)
		}

		return nil
	})
}

type AccountsManager interface {
	Register(email string, password string, lang string) (*model.Account, error)
	FindById(id string) (*model.Account, error)
	Remove(id string) error
}

type ProfilesManager interface {
	Create(accountId string, name string) (*model.Profile, error)
	Rename(id string, name string) error
	Remove(id string) error
	FindById(id string) (*model.Profile, error)
	ListForAccount(accountId string) ([]*model.Profile, error)
}

type Api struct {
	Accounts AccountsManager
	Profiles ProfilesManager
	Emitter
}

func (ctx *Api) Handler() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/accounts", ctx.postAccountHandler).Methods(http.MethodPost)
	router.HandleFunc("/accounts/{id}", ctx.deleteAccountHandler).Methods(http.MethodDelete)
	router.HandleFunc("/accounts/{id}/profiles", ctx.accountProfilesHandler).Methods(http.MethodGet)
	router.HandleFunc("/profiles", ctx.postProfileHandler).Methods(http.MethodPost)
	router.HandleFunc("/profiles/{id}/name", ctx.postProfileNameHandler).Methods(http.MethodPost)
	router.HandleFunc("/profiles/{id}", ctx.deleteProfileHandler).Methods(http.MethodDelete)

	return router
}

func (ctx *Api) postAccountHandler(resp http.ResponseWriter, req *http.Request) {
	validationErrors := validateRequest(req, govalidator.MapData{
		"email":    {"required", "email"},
		"password": {"required", "min:8"},
		"lang":     {},
	})
	if validationErrors != nil {
		apiBadRequest(resp, validationErrors)
		return
	}

	result, err := ctx.Accounts.Register(req.Form.Get("email"), req.Form.Get("password"), req.Form.Get("lang"))
	if err != nil {
		var emailTaken *account.EmailTakenError
		if errors.As(err, &emailTaken) {
			apiBadRequest(resp, map[string][]string{
				"email": {emailTaken.Error()},
			})
			return
		}

		apiServerError(resp, err, ctx.Emitter)
		return
	}

	apiJson(resp, http.StatusCreated, map[string]string{
		"id":    result.Id,
		"email": result.Email,
		"lang":  result.Lang,
	})
}

func (ctx *Api) deleteAccountHandler(resp http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	record, err := ctx.Accounts.FindById(id)
	if err != nil {
		apiServerError(resp, err, ctx.Emitter)
		return
	}

	if record == nil {
		apiNotFound(resp, "Cannot find record for the requested identifier")
		return
	}

	err = ctx.Accounts.Remove(id)
	if err != nil {
		apiServerError(resp, err, ctx.Emitter)
		return
	}

	resp.WriteHeader(http.StatusNoContent)
}

func (ctx *Api) accountProfilesHandler(resp http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	record, err := ctx.Accounts.FindById(id)
	if err != nil {
		apiServerError(resp, err, ctx.Emitter)
		return
	}

	if record == nil {
		apiNotFound(resp, "Cannot find record for the requested identifier")
		return
	}

	accountProfiles, err := ctx.Profiles.ListForAccount(id)
	if err != nil {
		apiServerError(resp, err, ctx.Emitter)
		return
	}

	if accountProfiles == nil {
		accountProfiles = []*model.Profile{}
	}

	apiJson(resp, http.StatusOK, accountProfiles)
}

func (ctx *Api) postProfileHandler(resp http.ResponseWriter, req *http.Request) {
	validationErrors := validateRequest(req, govalidator.MapData{
		"accountId": {"required", "uuid_any"},
		"name":      {"required", "profile_name"},
	})
	if validationErrors != nil {
		apiBadRequest(resp, validationErrors)
		return
	}

	accountId := req.Form.Get("accountId")
	record, err := ctx.Accounts.FindById(accountId)
	if err != nil {
		apiServerError(resp, err, ctx.Emitter)
		return
	}

	if record == nil {
		apiBadRequest(resp, map[string][]string{
			"accountId": {"The account does not exist"},
		})
		return
	}

	profile, err := ctx.Profiles.Create(accountId, req.Form.Get("name"))
	if err != nil {
		var nameTaken *profiles.NameTakenError
		if errors.As(err, &nameTaken) {
			apiBadRequest(resp, map[string][]string{
				"name": {nameTaken.Error()},
			})
			return
		}

		apiServerError(resp, err, ctx.Emitter)
		return
	}

	apiJson(resp, http.StatusCreated, profile)
}

func (ctx *Api) postProfileNameHandler(resp http.ResponseWriter, req *http.Request) {
	validationErrors := validateRequest(req, govalidator.MapData{
		"name": {"required", "profile_name"},
	})
	if validationErrors != nil {
		apiBadRequest(resp, validationErrors)
		return
	}

	id := mux.Vars(req)["id"]
	record, err := ctx.Profiles.FindById(id)
	if err != nil {
		apiServerError(resp, err, ctx.Emitter)
		return
	}

	if record == nil {
		apiNotFound(resp, "Cannot find record for the requested identifier")
		return
	}

	err = ctx.Profiles.Rename(id, req.Form.Get("name"))
	if err != nil {
		var nameTaken *profiles.NameTakenError
		if errors.As(err, &nameTaken) {
			apiBadRequest(resp, map[string][]string{
				"name": {nameTaken.Error()},
			})
			return
		}

		apiServerError(resp, err, ctx.Emitter)
		return
	}

	resp.WriteHeader(http.StatusNoContent)
}

func (ctx *Api) deleteProfileHandler(resp http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	record, err := ctx.Profiles.FindById(id)
	if err != nil {
		apiServerError(resp, err, ctx.Emitter)
		return
	}

	if record == nil {
		apiNotFound(resp, "Cannot find record for the requested identifier")
		return
	}

	err = ctx.Profiles.Remove(id)
	if err != nil {
		apiServerError(resp, err, ctx.Emitter)
		return
	}

	resp.WriteHeader(http.StatusNoContent)
}

func validateRequest(request *http.Request, rules govalidator.MapData) map[string][]string {
	_ = request.ParseForm()

	validator := govalidator.New(govalidator.Options{
		Request:         request,
		Rules:           rules,
		RequiredDefault: false,
	})
	validationResults := validator.Validate()

	if len(validationResults) != 0 {
		return validationResults
	}

	return nil
}
