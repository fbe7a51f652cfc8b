package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	authmodels "marketplace/internal/auth/models"
	"marketplace/internal/transport/http/mocks"
	id "marketplace/pkg/domain"
	dErrors "marketplace/pkg/domain-errors"
	httpErrors "marketplace/pkg/http-errors"
)

type AuthHandlerSuite struct {
	suite.Suite
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

func (s *AuthHandlerSuite) newHandler(t *testing.T) (*mocks.MockAuthService, chi.Router) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockAuthService(ctrl)
	handler := NewAuthHandler(mockService, slog.New(slog.DiscardHandler))
	router := chi.NewRouter()
	handler.Register(router)
	return mockService, router
}

func (s *AuthHandlerSuite) doRequest(router chi.Router, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		_ = json.NewDecoder(w.Body).Decode(&decoded)
	}
	return w, decoded
}

func (s *AuthHandlerSuite) TestHandleRegister() {
	validBody := `{"email":"ada@example.com","password":"correct horse","first_name":"Ada","last_name":"Lovelace","role":"BUYER"}`

	s.T().Run("valid registration - 201", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		user := &authmodels.User{
			ID:    id.NewUserID(),
			Email: "ada@example.com",
			Role:  authmodels.RoleBuyer,
		}
		mockService.EXPECT().Register(gomock.Any(), gomock.Any()).Return(user, nil)

		w, body := s.doRequest(router, http.MethodPost, "/auth/register", validBody)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "ada@example.com", body["email"])
		assert.Equal(t, "BUYER", body["role"])
	})

	s.T().Run("malformed json - 400", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Register(gomock.Any(), gomock.Any()).Times(0)

		w, body := s.doRequest(router, http.MethodPost, "/auth/register", "{bad-json")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, string(httpErrors.CodeInvalidRequest), body["error"])
	})

	s.T().Run("invalid email - 400", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Register(gomock.Any(), gomock.Any()).Times(0)

		w, body := s.doRequest(router, http.MethodPost, "/auth/register",
			`{"email":"not-an-email","password":"correct horse","role":"BUYER"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, string(httpErrors.CodeInvalidInput), body["error"])
	})

	s.T().Run("invalid role - 400", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Register(gomock.Any(), gomock.Any()).Times(0)

		w, body := s.doRequest(router, http.MethodPost, "/auth/register",
			`{"email":"ada@example.com","password":"correct horse","role":"ADMIN"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, string(httpErrors.CodeValidation), body["error"])
	})

	s.T().Run("duplicate email - 409", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Register(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "email already registered"))

		w, body := s.doRequest(router, http.MethodPost, "/auth/register", validBody)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, string(httpErrors.CodeConflict), body["error"])
	})
}

func (s *AuthHandlerSuite) TestHandleLogin() {
	s.T().Run("valid credentials - 200 with token", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		result := &authmodels.LoginResult{
			User:  &authmodels.User{ID: id.NewUserID(), Email: "ada@example.com", Role: authmodels.RoleBuyer},
			Token: "signed-token",
		}
		mockService.EXPECT().Login(gomock.Any(), "ada@example.com", "correct horse").Return(result, nil)

		w, body := s.doRequest(router, http.MethodPost, "/auth/login",
			`{"email":"ada@example.com","password":"correct horse"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "signed-token", body["token"])
	})

	s.T().Run("wrong password - 401", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))

		w, body := s.doRequest(router, http.MethodPost, "/auth/login",
			`{"email":"ada@example.com","password":"wrong"}`)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, string(httpErrors.CodeUnauthorized), body["error"])
	})
}

func (s *AuthHandlerSuite) TestHandleLogout() {
	s.T().Run("with token - 204", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Logout(gomock.Any(), "some-token").Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		req.Header.Set("Authorization", "Bearer some-token")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	s.T().Run("without token - 401", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Logout(gomock.Any(), gomock.Any()).Times(0)

		w, body := s.doRequest(router, http.MethodPost, "/auth/logout", "")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, string(httpErrors.CodeUnauthorized), body["error"])
	})
}

func (s *AuthHandlerSuite) TestHandleRefresh() {
	s.T().Run("valid token rotates - 200", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		expiresAt := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
		mockService.EXPECT().Refresh(gomock.Any(), "old-token").
			Return(&authmodels.Identity{Token: "new-token", ExpiresAt: expiresAt}, nil)

		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		req.Header.Set("Authorization", "Bearer old-token")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "new-token", body["token"])
	})

	s.T().Run("unknown session - 404", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().Refresh(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "session not found"))

		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		req.Header.Set("Authorization", "Bearer stale-token")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
