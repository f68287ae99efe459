package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/elyby/yggdrasil/auth"
	"github.com/elyby/yggdrasil/signer"
)

type authServiceMock struct {
	mock.Mock
}

func (m *authServiceMock) Authenticate(email string, password string, clientToken string, requestUser bool) (*auth.AuthenticateResult, error) {
	args := m.Called(email, password, clientToken, requestUser)
	var result *auth.AuthenticateResult
	if casted, ok := args.Get(0).(*auth.AuthenticateResult); ok {
		result = casted
	}

	return result, args.Error(1)
}

func (m *authServiceMock) Refresh(accessToken string, clientToken string, requestedProfileId string, requestUser bool) (*auth.RefreshResult, error) {
	args := m.Called(accessToken, clientToken, requestedProfileId, requestUser)
	var result *auth.RefreshResult
	if casted, ok := args.Get(0).(*auth.RefreshResult); ok {
		result = casted
	}

	return result, args.Error(1)
}

func (m *authServiceMock) Validate(accessToken string, clientToken string) error {
	return m.Called(accessToken, clientToken).Error(0)
}

func (m *authServiceMock) Invalidate(accessToken string) error {
	return m.Called(accessToken).Error(0)
}

func (m *authServiceMock) SignOut(email string, password string) error {
	return m.Called(email, password).Error(0)
}

func newAuthserverSuite() (*authServiceMock, http.Handler) {
	service := &authServiceMock{}
	srv := &Authserver{Auth: service}

	return service, srv.Handler()
}

func performRequest(handler http.Handler, method string, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	return w
}

func TestAuthserver_Authenticate(t *testing.T) {
	t.Run("successful authentication", func(t *testing.T) {
		service, handler := newAuthserverSuite()
		service.On("Authenticate", "mock@ely.by", "password", "client", true).Once().Return(&auth.AuthenticateResult{
			AccessToken:       "access",
			ClientToken:       "client",
			AvailableProfiles: []*signer.ProfileResponse{},
		}, nil)

		w := performRequest(handler, "POST", "http://localhost/authserver/authenticate", `{
			"agent": {"name": "Minecraft", "version": 1},
			"username": "mock@ely.by",
			"password": "password",
			"clientToken": "client",
			"requestUser": true
		}`)

		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"accessToken":"access","clientToken":"client","availableProfiles":[]}`, w.Body.String())
	})

	t.Run("wrong credentials", func(t *testing.T) {
		service, handler := newAuthserverSuite()
		service.On("Authenticate", "mock@ely.by", "wrong", "", false).Once().Return(nil, &auth.InvalidCredentialsError{})

		w := performRequest(handler, "POST", "http://localhost/authserver/authenticate", `{
			"username": "mock@ely.by",
			"password": "wrong"
		}`)

		require.Equal(t, http.StatusForbidden, w.Code)
		require.JSONEq(t, `{
			"error": "ForbiddenOperationException",
			"errorMessage": "Invalid credentials. Invalid username or password."
		}`, w.Body.String())
	})

	t.Run("malformed body", func(t *testing.T) {
		_, handler := newAuthserverSuite()

		w := performRequest(handler, "POST", "http://localhost/authserver/authenticate", "this is not a json")

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.JSONEq(t, `{"error":"IllegalArgumentException","errorMessage":""}`, w.Body.String())
	})
}

func TestAuthserver_Refresh(t *testing.T) {
	t.Run("refresh with a selected profile", func(t *testing.T) {
		service, handler := newAuthserverSuite()
		service.On("Refresh", "old token", "client", "profile1", false).Once().Return(&auth.RefreshResult{
			AccessToken: "new token",
			ClientToken: "client",
		}, nil)

		w := performRequest(handler, "POST", "http://localhost/authserver/refresh", `{
			"accessToken": "old token",
			"clientToken": "client",
			"selectedProfile": {"id": "profile1"}
		}`)

		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"accessToken":"new token","clientToken":"client"}`, w.Body.String())
	})

	t.Run("invalid token", func(t *testing.T) {
		service, handler := newAuthserverSuite()
		service.On("Refresh", "old token", "client", "", false).Once().Return(nil, &auth.InvalidTokenError{})

		w := performRequest(handler, "POST", "http://localhost/authserver/refresh", `{
			"accessToken": "old token",
			"clientToken": "client"
		}`)

		require.Equal(t, http.StatusForbidden, w.Code)
		require.JSONEq(t, `{"error":"ForbiddenOperationException","errorMessage":"Invalid token."}`, w.Body.String())
	})

	t.Run("profile conflict", func(t *testing.T) {
		service, handler := newAuthserverSuite()
		service.On("Refresh", "old token", "client", "profile2", false).Once().Return(nil, &auth.IllegalArgumentError{})

		w := performRequest(handler, "POST", "http://localhost/authserver/refresh", `{
			"accessToken": "old token",
			"clientToken": "client",
			"selectedProfile": {"id": "profile2"}
		}`)

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.JSONEq(t, `{"error":"IllegalArgumentException","errorMessage":""}`, w.Body.String())
	})
}

func TestAuthserver_Validate(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		service, handler := newAuthserverSuite()
		service.On("Validate", "access", "client").Once().Return(nil)

		w := performRequest(handler, "POST", "http://localhost/authserver/validate", `{
			"accessToken": "access",
			"clientToken": "client"
		}`)

		require.Equal(t, http.StatusNoContent, w.Code)
		require.Empty(t, w.Body.String())
	})

	t.Run("invalid token", func(t *testing.T) {
		service, handler := newAuthserverSuite()
		service.On("Validate", "access", "client").Once().Return(&auth.InvalidTokenError{})

		w := performRequest(handler, "POST", "http://localhost/authserver/validate", `{
			"accessToken": "access",
			"clientToken": "client"
		}`)

		require.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestAuthserver_Invalidate(t *testing.T) {
	service, handler := newAuthserverSuite()
	service.On("Invalidate", "access").Once().Return(nil)

	w := performRequest(handler, "POST", "http://localhost/authserver/invalidate", `{
		"accessToken": "access",
		"clientToken": "client"
	}`)

	require.Equal(t, http.StatusNoContent, w.Code)
	service.AssertExpectations(t)
}

func TestAuthserver_Signout(t *testing.T) {
	t.Run("successful signout", func(t *testing.T) {
		service, handler := newAuthserverSuite()
		service.On("SignOut", "mock@ely.by", "password").Once().Return(nil)

		w := performRequest(handler, "POST", "http://localhost/authserver/signout", `{
			"username": "mock@ely.by",
			"password": "password"
		}`)

		require.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("wrong credentials", func(t *testing.T) {
		service, handler := newAuthserverSuite()
		service.On("SignOut", "mock@ely.by", "wrong").Once().Return(&auth.InvalidCredentialsError{})

		w := performRequest(handler, "POST", "http://localhost/authserver/signout", `{
			"username": "mock@ely.by",
			"password": "wrong"
		}`)

		require.Equal(t, http.StatusForbidden, w.Code)
	})
}
