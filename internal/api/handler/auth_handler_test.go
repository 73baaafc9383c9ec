package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"credit-engine/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func authTestConfig() config.Config {
	cfg := config.Config{}
	cfg.Server.Auth.Enabled = true
	cfg.Server.Auth.JWTSecret = "test-secret"
	return cfg
}

func TestGenerateBearerToken(t *testing.T) {
	t.Run("issues a signed token for a username", func(t *testing.T) {
		h := NewAuthHandler(authTestConfig(), testLogger)

		req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"username":"analyst"}`))
		rec := httptest.NewRecorder()

		h.GenerateBearerToken(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]string
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.True(t, strings.HasPrefix(resp["token"], "Bearer "))

		tokenString := strings.TrimPrefix(resp["token"], "Bearer ")
		parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return []byte("test-secret"), nil
		})
		assert.NoError(t, err)
		assert.True(t, parsed.Valid)
		claims := parsed.Claims.(jwt.MapClaims)
		assert.Equal(t, "analyst", claims["username"])
	})

	t.Run("rejects missing username", func(t *testing.T) {
		h := NewAuthHandler(authTestConfig(), testLogger)

		req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()

		h.GenerateBearerToken(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		h := NewAuthHandler(authTestConfig(), testLogger)

		req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"username":`))
		rec := httptest.NewRecorder()

		h.GenerateBearerToken(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
