package http

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestJwtAuth(t *testing.T) {
	key := []byte("the secret")

	newAuth := func() (*JwtAuth, *emitterMock) {
		emitter := &emitterMock{}
		return &JwtAuth{Emitter: emitter, Key: key}, emitter
	}

	t.Run("issued token authenticates", func(t *testing.T) {
		jwtAuth, emitter := newAuth()
		emitter.On("Emit", "authenticator:success").Once()

		token, err := jwtAuth.NewToken(AdminScope)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		req := httptest.NewRequest("GET", "http://localhost", nil)
		req.Header.Set("Authorization", "Bearer "+string(token))

		require.NoError(t, jwtAuth.Authenticate(req, AdminScope))
		emitter.AssertExpectations(t)
	})

	t.Run("missing scope", func(t *testing.T) {
		jwtAuth, emitter := newAuth()
		emitter.On("Emit", "authenticator:error", mock.Anything).Once()

		token, err := jwtAuth.NewToken()
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "http://localhost", nil)
		req.Header.Set("Authorization", "Bearer "+string(token))

		err = jwtAuth.Authenticate(req, AdminScope)
		require.EqualError(t, err, "The token doesn't have the scope to perform the action")
	})

	t.Run("no authorization header", func(t *testing.T) {
		jwtAuth, emitter := newAuth()
		emitter.On("Emit", "authenticator:error", mock.Anything).Once()

		req := httptest.NewRequest("GET", "http://localhost", nil)

		err := jwtAuth.Authenticate(req, AdminScope)
		require.EqualError(t, err, "Authentication header not presented")
	})

	t.Run("not a bearer token", func(t *testing.T) {
		jwtAuth, emitter := newAuth()
		emitter.On("Emit", "authenticator:error", mock.Anything).Once()

		req := httptest.NewRequest("GET", "http://localhost", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

		err := jwtAuth.Authenticate(req, AdminScope)
		require.EqualError(t, err, "Cannot recognize JWT token in passed value")
	})

	t.Run("unparseable token", func(t *testing.T) {
		jwtAuth, emitter := newAuth()
		emitter.On("Emit", "authenticator:error", mock.Anything).Once()

		req := httptest.NewRequest("GET", "http://localhost", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")

		err := jwtAuth.Authenticate(req, AdminScope)
		require.EqualError(t, err, "Cannot parse passed JWT token")
	})

	t.Run("token signed with another key", func(t *testing.T) {
		foreign := &JwtAuth{Emitter: &emitterMock{}, Key: []byte("another secret")}
		token, err := foreign.NewToken(AdminScope)
		require.NoError(t, err)

		jwtAuth, emitter := newAuth()
		emitter.On("Emit", "authenticator:error", mock.Anything).Once()

		req := httptest.NewRequest("GET", "http://localhost", nil)
		req.Header.Set("Authorization", "Bearer "+string(token))

		err = jwtAuth.Authenticate(req, AdminScope)
		require.EqualError(t, err, "JWT token have invalid signature. It may be corrupted or expired")
	})

	t.Run("no key configured", func(t *testing.T) {
		emitter := &emitterMock{}
		emitter.On("Emit", "authenticator:error", mock.Anything).Once()
		jwtAuth := &JwtAuth{Emitter: emitter}

		req := httptest.NewRequest("GET", "http://localhost", nil)
		req.Header.Set("Authorization", "Bearer whatever")

		err := jwtAuth.Authenticate(req, AdminScope)
		require.EqualError(t, err, "Signing key not set")

		_, err = jwtAuth.NewToken(AdminScope)
		require.Error(t, err)
	})
}
