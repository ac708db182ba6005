package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

type staticValidator struct {
	claims *ActorClaims
	err    error
}

func (v *staticValidator) ValidateToken(string) (*ActorClaims, error) {
	return v.claims, v.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRequireAuthMissingHeader(t *testing.T) {
	handler := RequireAuth(&staticValidator{}, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run without credentials")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/evidence/upload", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthInvalidToken(t *testing.T) {
	validator := &staticValidator{err: errors.New("expired")}
	handler := RequireAuth(validator, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run with a bad token")
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/evidence/upload", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthSetsActorContext(t *testing.T) {
	validator := &staticValidator{claims: &ActorClaims{ActorID: "user-7", Role: "analyst"}}
	var gotActor, gotRole string
	handler := RequireAuth(validator, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotActor = GetActorID(r.Context())
		gotRole = GetActorRole(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/evidence/my-uploads", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "user-7", gotActor)
	require.Equal(t, "analyst", gotRole)
}

func TestHMACValidatorRoundTrip(t *testing.T) {
	validator := NewHMACValidator("test-key")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "user-42",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)

	claims, err := validator.ValidateToken(signed)
	require.NoError(t, err)
	require.Equal(t, "user-42", claims.ActorID)
	require.Equal(t, "admin", claims.Role)
}

func TestHMACValidatorRejectsWrongKey(t *testing.T) {
	validator := NewHMACValidator("right-key")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-42"})
	signed, err := token.SignedString([]byte("wrong-key"))
	require.NoError(t, err)

	_, err = validator.ValidateToken(signed)
	require.Error(t, err)
}

func TestHMACValidatorRejectsMissingSubject(t *testing.T) {
	validator := NewHMACValidator("test-key")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "admin"})
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)

	_, err = validator.ValidateToken(signed)
	require.Error(t, err)
}
