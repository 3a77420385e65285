package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func signedToken(t *testing.T, secret string, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.MapClaims{
		"sub": "operator",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestOperatorAuth(t *testing.T) {
	const secret = "op-secret"
	protected := OperatorAuth(secret)(okHandler())

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"missing header", "", 401},
		{"not bearer", "Basic abc", 401},
		{"garbage token", "Bearer not.a.jwt", 401},
		{"wrong secret", "Bearer " + signedToken(t, "other-secret", jwt.SigningMethodHS256), 401},
		{"valid token", "Bearer " + signedToken(t, secret, jwt.SigningMethodHS256), 200},
		{"case-insensitive scheme", "bearer " + signedToken(t, secret, jwt.SigningMethodHS256), 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/api/mappings", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			protected.ServeHTTP(w, r)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
		})
	}
}

func TestOperatorAuth_ExpiredToken(t *testing.T) {
	const secret = "op-secret"
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "operator",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	protected := OperatorAuth(secret)(okHandler())
	r := httptest.NewRequest("POST", "/api/mappings", nil)
	r.Header.Set("Authorization", "Bearer "+s)
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, r)
	if w.Code != 401 {
		t.Errorf("status = %d, want 401 for expired token", w.Code)
	}
}

func TestOperatorAuth_EmptySecretDisablesGuard(t *testing.T) {
	protected := OperatorAuth("")(okHandler())

	r := httptest.NewRequest("POST", "/api/mappings", nil)
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, r)
	if w.Code != 200 {
		t.Errorf("status = %d, want 200 when the guard is disabled", w.Code)
	}
}

func TestRequestLogging_PreservesStatus(t *testing.T) {
	h := RequestLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	r := httptest.NewRequest("GET", "/api/events", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTeapot)
	}
}
