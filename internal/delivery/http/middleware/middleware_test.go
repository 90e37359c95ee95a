package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hospital-appointment-service/config"
	"hospital-appointment-service/internal/domain/entity"
	"hospital-appointment-service/pkg/jwt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func newJWT() *jwt.JWTService {
	return jwt.NewJWTService(config.JWTConfig{Secret: "test-secret", AccessExpiry: time.Minute})
}

func TestAuthenticateSetsIdentity(t *testing.T) {
	svc := newJWT()
	userID := uuid.New()
	token, err := svc.GenerateAccessToken(userID, "doc@example.com", entity.RoleIDDoctor)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var gotUser uuid.UUID
	var gotRole int
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = GetUserIDFromContext(r.Context())
		gotRole, _ = GetRoleIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	NewAuthMiddleware(svc).Authenticate(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotUser != userID || gotRole != entity.RoleIDDoctor {
		t.Fatalf("unexpected identity %s/%d", gotUser, gotRole)
	}
}

func TestAuthenticateRejects(t *testing.T) {
	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"garbage token":  "Bearer abc.def.ghi",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			NewAuthMiddleware(newJWT()).Authenticate(http.NotFoundHandler()).ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	cases := []struct {
		roleID int
		want   int
	}{
		{entity.RoleIDSuperAdmin, http.StatusOK},
		{entity.RoleIDAdmin, http.StatusOK},
		{entity.RoleIDDoctor, http.StatusForbidden},
		{entity.RoleIDPatient, http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithIdentity(req.Context(), uuid.New(), tc.roleID))
		rec := httptest.NewRecorder()
		RequireAdmin(ok).ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("role %d: expected %d, got %d", tc.roleID, tc.want, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	RequireAdmin(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no identity: expected 401, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	rec := httptest.NewRecorder()
	NewCORSMiddleware().Handle(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), "PATCH") {
		t.Fatalf("PATCH missing from allowed methods")
	}
}

func TestLoggingRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	handler := NewLoggingMiddleware(log).Handle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/appointments", nil))

	out := buf.String()
	if !strings.Contains(out, `"status":409`) || !strings.Contains(out, `"path":"/api/v1/appointments"`) {
		t.Fatalf("unexpected log line: %s", out)
	}
	if !strings.Contains(out, `"level":"warning"`) {
		t.Fatalf("expected a warning for 4xx: %s", out)
	}
}
