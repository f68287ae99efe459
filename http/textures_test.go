package http

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/elyby/yggdrasil/model"
)

type sessionsFinderMock struct {
	mock.Mock
}

func (m *sessionsFinderMock) FindValidByToken(accessToken string) (*model.Session, error) {
	args := m.Called(accessToken)
	var result *model.Session
	if casted, ok := args.Get(0).(*model.Session); ok {
		result = casted
	}

	return result, args.Error(1)
}

type texturesStoreMock struct {
	mock.Mock
}

func (m *texturesStoreMock) Save(data []byte) (string, error) {
	args := m.Called(data)
	return args.String(0), args.Error(1)
}

func (m *texturesStoreMock) FindByHash(hash string) ([]byte, error) {
	args := m.Called(hash)
	var result []byte
	if casted, ok := args.Get(0).([]byte); ok {
		result = casted
	}

	return result, args.Error(1)
}

type texturesUpdaterMock struct {
	mock.Mock
}

func (m *texturesUpdaterMock) FindById(id string) (*model.Profile, error) {
	args := m.Called(id)
	var result *model.Profile
	if casted, ok := args.Get(0).(*model.Profile); ok {
		result = casted
	}

	return result, args.Error(1)
}

func (m *texturesUpdaterMock) UpdateSkin(id string, skinHash string, isSlim bool) error {
	return m.Called(id, skinHash, isSlim).Error(0)
}

func (m *texturesUpdaterMock) UpdateCape(id string, capeHash string) error {
	return m.Called(id, capeHash).Error(0)
}

type texturesSuite struct {
	Sessions *sessionsFinderMock
	Store    *texturesStoreMock
	Profiles *texturesUpdaterMock
	Handler  http.Handler
}

func newTexturesSuite() *texturesSuite {
	sessions := &sessionsFinderMock{}
	store := &texturesStoreMock{}
	updater := &texturesUpdaterMock{}
	textures := &Textures{
		Sessions: sessions,
		Store:    store,
		Profiles: updater,
	}

	return &texturesSuite{
		Sessions: sessions,
		Store:    store,
		Profiles: updater,
		Handler:  textures.Handler(),
	}
}

func (s *texturesSuite) expectAuthorizedProfile() {
	s.Sessions.On("FindValidByToken", "access").Once().Return(&model.Session{
		AccessToken: "access",
		AccountId:   "account1",
		ProfileId:   "profile1",
	}, nil)
	s.Profiles.On("FindById", "profile1").Once().Return(&model.Profile{
		Id:        "profile1",
		AccountId: "account1",
	}, nil)
}

func encodePng(t *testing.T, width int, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))

	return buf.Bytes()
}

func buildUpload(t *testing.T, fileContents []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Disposition", `form-data; name="file"; filename="texture.png"`)
	partHeader.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(partHeader)
	require.NoError(t, err)
	_, err = part.Write(fileContents)
	require.NoError(t, err)

	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}

	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func performUpload(handler http.Handler, method string, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer access")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	return w
}

func TestTextures_GetTexture(t *testing.T) {
	t.Run("existing texture", func(t *testing.T) {
		suite := newTexturesSuite()
		suite.Store.On("FindByHash", "hash").Once().Return([]byte("png bytes"), nil)

		w := performRequest(suite.Handler, "GET", "http://localhost/textures/hash", "")

		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "image/png", w.Header().Get("Content-Type"))
		require.Equal(t, "public, max-age=31536000, immutable", w.Header().Get("Cache-Control"))
		require.Equal(t, "png bytes", w.Body.String())
	})

	t.Run("unknown texture", func(t *testing.T) {
		suite := newTexturesSuite()
		suite.Store.On("FindByHash", "hash").Once().Return(nil, nil)

		w := performRequest(suite.Handler, "GET", "http://localhost/textures/hash", "")

		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTextures_PutSkin(t *testing.T) {
	t.Run("uploads a slim skin", func(t *testing.T) {
		suite := newTexturesSuite()
		suite.expectAuthorizedProfile()
		suite.Store.On("Save", mock.AnythingOfType("[]uint8")).Once().Return("skinhash", nil)
		suite.Profiles.On("UpdateSkin", "profile1", "skinhash", true).Once().Return(nil)

		body, contentType := buildUpload(t, encodePng(t, 64, 64), map[string]string{"model": "slim"})
		w := performUpload(suite.Handler, "PUT", "http://localhost/api/user/profile/profile1/skin", body, contentType)

		require.Equal(t, http.StatusNoContent, w.Code)
		suite.Profiles.AssertExpectations(t)
	})

	t.Run("legacy skin dimensions", func(t *testing.T) {
		suite := newTexturesSuite()
		suite.expectAuthorizedProfile()
		suite.Store.On("Save", mock.Anything).Once().Return("skinhash", nil)
		suite.Profiles.On("UpdateSkin", "profile1", "skinhash", false).Once().Return(nil)

		body, contentType := buildUpload(t, encodePng(t, 64, 32), nil)
		w := performUpload(suite.Handler, "PUT", "http://localhost/api/user/profile/profile1/skin", body, contentType)

		require.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("wrong dimensions", func(t *testing.T) {
		suite := newTexturesSuite()
		suite.expectAuthorizedProfile()

		body, contentType := buildUpload(t, encodePng(t, 32, 32), nil)
		w := performUpload(suite.Handler, "PUT", "http://localhost/api/user/profile/profile1/skin", body, contentType)

		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, w.Body.String(), "invalid dimensions")
		suite.Store.AssertNotCalled(t, "Save", mock.Anything)
	})

	t.Run("no token", func(t *testing.T) {
		suite := newTexturesSuite()

		body, contentType := buildUpload(t, encodePng(t, 64, 64), nil)
		req := httptest.NewRequest("PUT", "http://localhost/api/user/profile/profile1/skin", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		suite.Handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusForbidden, w.Code)
		require.JSONEq(t, `{"error":"ForbiddenOperationException","errorMessage":"Invalid token."}`, w.Body.String())
	})

	t.Run("foreign profile", func(t *testing.T) {
		suite := newTexturesSuite()
		suite.Sessions.On("FindValidByToken", "access").Once().Return(&model.Session{
			AccessToken: "access",
			AccountId:   "account1",
		}, nil)
		suite.Profiles.On("FindById", "profile1").Once().Return(&model.Profile{
			Id:        "profile1",
			AccountId: "account2",
		}, nil)

		body, contentType := buildUpload(t, encodePng(t, 64, 64), nil)
		w := performUpload(suite.Handler, "PUT", "http://localhost/api/user/profile/profile1/skin", body, contentType)

		require.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("session without a selected profile", func(t *testing.T) {
		suite := newTexturesSuite()
		suite.Sessions.On("FindValidByToken", "access").Once().Return(&model.Session{
			AccessToken: "access",
			AccountId:   "account1",
		}, nil)
		suite.Profiles.On("FindById", "profile1").Once().Return(&model.Profile{
			Id:        "profile1",
			AccountId: "account1",
		}, nil)

		body, contentType := buildUpload(t, encodePng(t, 64, 64), nil)
		w := performUpload(suite.Handler, "PUT", "http://localhost/api/user/profile/profile1/skin", body, contentType)

		require.Equal(t, http.StatusForbidden, w.Code)
		require.JSONEq(t, `{"error":"ForbiddenOperationException","errorMessage":"Invalid token."}`, w.Body.String())
		suite.Profiles.AssertNotCalled(t, "UpdateSkin", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("session holds a sibling profile of the same account", func(t *testing.T) {
		suite := newTexturesSuite()
		suite.Sessions.On("FindValidByToken", "access").Once().Return(&model.Session{
			AccessToken: "access",
			AccountId:   "account1",
			ProfileId:   "profile2",
		}, nil)
		suite.Profiles.On("FindById", "profile1").Once().Return(&model.Profile{
			Id:        "profile1",
			AccountId: "account1",
		}, nil)

		body, contentType := buildUpload(t, encodePng(t, 64, 64), nil)
		w := performUpload(suite.Handler, "PUT", "http://localhost/api/user/profile/profile1/skin", body, contentType)

		require.Equal(t, http.StatusForbidden, w.Code)
		suite.Store.AssertNotCalled(t, "Save", mock.Anything)
		suite.Profiles.AssertNotCalled(t, "UpdateSkin", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTextures_DeleteSkin(t *testing.T) {
	suite := newTexturesSuite()
	suite.expectAuthorizedProfile()
	suite.Profiles.On("UpdateSkin", "profile1", "", false).Once().Return(nil)

	req := httptest.NewRequest("DELETE", "http://localhost/api/user/profile/profile1/skin", nil)
	req.Header.Set("Authorization", "Bearer access")
	w := httptest.NewRecorder()
	suite.Handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	suite.Profiles.AssertExpectations(t)
}

func TestTextures_PutCape(t *testing.T) {
	t.Run("uploads a cape", func(t *testing.T) {
		suite := newTexturesSuite()
		suite.expectAuthorizedProfile()
		suite.Store.On("Save", mock.Anything).Once().Return("capehash", nil)
		suite.Profiles.On("UpdateCape", "profile1", "capehash").Once().Return(nil)

		body, contentType := buildUpload(t, encodePng(t, 22, 17), nil)
		w := performUpload(suite.Handler, "PUT", "http://localhost/api/user/profile/profile1/cape", body, contentType)

		require.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("skin dimensions are not a valid cape", func(t *testing.T) {
		suite := newTexturesSuite()
		suite.expectAuthorizedProfile()

		body, contentType := buildUpload(t, encodePng(t, 64, 64), nil)
		w := performUpload(suite.Handler, "PUT", "http://localhost/api/user/profile/profile1/cape", body, contentType)

		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTextures_DeleteCape(t *testing.T) {
	suite := newTexturesSuite()
	suite.expectAuthorizedProfile()
	suite.Profiles.On("UpdateCape", "profile1", "").Once().Return(nil)

	req := httptest.NewRequest("DELETE", "http://localhost/api/user/profile/profile1/cape", nil)
	req.Header.Set("Authorization", "Bearer access")
	w := httptest.NewRecorder()
	suite.Handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	suite.Profiles.AssertExpectations(t)
}
