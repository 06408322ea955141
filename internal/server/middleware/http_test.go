package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "givebridge/backend/internal/platform/errors"
	"givebridge/backend/internal/security"
	"givebridge/backend/internal/user/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestRequireAuth(t *testing.T) {
	dir := seedDirectory(t, record("u1", "ext_1", "a@example.com", domain.RoleDonor))
	g := NewGateway(security.NewTestVerifier(), dir, 0, nil)
	r := gin.New()
	r.GET("/x", RequireAuth(g), func(c *gin.Context) {
		c.String(http.StatusOK, Identity(c).ID)
	})

	w := serve(r, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	body := decodeError(t, w)
	if body.Success || body.Error != string(apperrors.CodeMissingCredential) {
		t.Errorf("body = %+v", body)
	}

	w = serve(r, bearer(t, "ext_1", time.Hour))
	if w.Code != http.StatusOK || w.Body.String() != "u1" {
		t.Errorf("status = %d body = %q", w.Code, w.Body.String())
	}
}

func TestRequireAuth_Deactivated403(t *testing.T) {
	dir := seedDirectory(t, record("u1", "ext_1", "a@example.com", domain.RoleDonor))
	if _, err := dir.Deactivate(t.Context(), "u1"); err != nil {
		t.Fatal(err)
	}
	g := NewGateway(security.NewTestVerifier(), dir, 0, nil)
	r := gin.New()
	r.GET("/x", RequireAuth(g), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, bearer(t, "ext_1", time.Hour))
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if body := decodeError(t, w); body.Error != string(apperrors.CodeAccountDeactivated) {
		t.Errorf("error = %q", body.Error)
	}
}

func TestOptionalAuth(t *testing.T) {
	dir := seedDirectory(t, record("u1", "ext_1", "a@example.com", domain.RoleDonor))
	g := NewGateway(security.NewTestVerifier(), dir, 0, nil)
	r := gin.New()
	r.GET("/x", OptionalAuth(g), func(c *gin.Context) {
		if rec := Identity(c); rec != nil {
			c.String(http.StatusOK, rec.ID)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	if w := serve(r, "Bearer broken"); w.Body.String() != "anonymous" {
		t.Errorf("broken credential body = %q", w.Body.String())
	}
	if w := serve(r, bearer(t, "ext_1", time.Hour)); w.Body.String() != "u1" {
		t.Errorf("valid credential body = %q", w.Body.String())
	}
}

func TestRequireCredential(t *testing.T) {
	g := NewGateway(security.NewTestVerifier(), seedDirectory(t), 0, nil)
	r := gin.New()
	r.GET("/x", RequireCredential(g), func(c *gin.Context) {
		claim, _ := ClaimFromContext(c.Request.Context())
		c.String(http.StatusOK, claim.Subject)
	})

	if w := serve(r, bearer(t, "ext_new", time.Hour)); w.Body.String() != "ext_new" {
		t.Errorf("body = %q", w.Body.String())
	}
	if w := serve(r, bearer(t, "ext_new", -time.Hour)); w.Code != http.StatusUnauthorized {
		t.Errorf("expired status = %d", w.Code)
	}
}

func TestAbortWithError_HidesCause(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		AbortWithError(c, errors.New("pq: connection refused on 10.0.0.1"))
	})
	w := serve(r, "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	body := decodeError(t, w)
	if body.Error != string(apperrors.CodeInternal) || body.Message != "internal server error" {
		t.Errorf("body = %+v", body)
	}
}
