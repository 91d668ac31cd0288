package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/matside-backend/internal/platform/logger"
)

const adminSecret = "test-admin-secret"

func adminRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewAdminAuth(logger.Nop(), adminSecret).RequireAdmin())
	r.GET("/api/admin/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("admin_subject"))
	})
	return r
}

func token(t *testing.T, secret, role string, exp time.Duration) string {
	t.Helper()
	tok, err := SignAdminToken(secret, AdminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops@matside.test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(exp)),
		},
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestAdminAuth(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"valid admin", "Bearer " + token(t, adminSecret, AdminRole, time.Hour), http.StatusOK},
		{"wrong role", "Bearer " + token(t, adminSecret, "coach", time.Hour), http.StatusForbidden},
		{"wrong secret", "Bearer " + token(t, "other", AdminRole, time.Hour), http.StatusUnauthorized},
		{"expired", "Bearer " + token(t, adminSecret, AdminRole, -time.Minute), http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/api/admin/ping", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			adminRouter().ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status: got %d want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
			if tc.want == http.StatusOK && rec.Body.String() != "ops@matside.test" {
				t.Fatalf("subject not propagated: %q", rec.Body.String())
			}
		})
	}
}

func TestAdminAuthRejectsUnsignedAlgorithm(t *testing.T) {
	t.Parallel()
	claims := AdminClaims{Role: AdminRole, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	adminRouter().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d want 401", rec.Code)
	}
}
