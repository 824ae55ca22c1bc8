package bridge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/classpod/core/internal/middleware"
	"github.com/classpod/core/internal/modules/rooms"
	"github.com/classpod/core/internal/pkg/token"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type nilIdentity struct{}

func (nilIdentity) Lookup(connID string) (string, bool) { return "", false }

type nilMembership struct{}

func (nilMembership) RoleOf(ctx context.Context, userID, classroomID string) (string, error) {
	return "", nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *rooms.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mgr := rooms.NewManager(nilIdentity{}, nilMembership{})
	h := NewHandler(mgr, zap.NewNop())
	r := gin.New()
	h.RegisterRoutes(r, middleware.InternalAuth())
	return r, mgr
}

func internalToken(t *testing.T) string {
	t.Helper()
	tok, err := token.Sign("", "", token.PurposeInternal, time.Minute)
	if err != nil {
		t.Fatalf("sign internal token: %v", err)
	}
	return tok
}

func doRequest(r *gin.Engine, method, path, body, tok string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStartActivity(t *testing.T) {
	r, mgr := newTestRouter(t)
	tok := internalToken(t)

	w := doRequest(r, http.MethodPost, "/internal/class-1/activity",
		`{"activityId":"act-1","info":{"kind":"quiz"},"topologyPolicyId":"ring"}`, tok)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	if id, ok := mgr.LiveActivity("class-1"); !ok || id != "act-1" {
		t.Errorf("live activity = (%q, %v), want (act-1, true)", id, ok)
	}
}

func TestStartActivityValidatesBody(t *testing.T) {
	r, _ := newTestRouter(t)
	tok := internalToken(t)

	// activityId is required.
	w := doRequest(r, http.MethodPost, "/internal/class-1/activity", `{"info":{}}`, tok)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing activityId: status = %d, want 400", w.Code)
	}

	w = doRequest(r, http.MethodPost, "/internal/class-1/activity", `not json`, tok)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", w.Code)
	}
}

func TestEndActivity(t *testing.T) {
	r, mgr := newTestRouter(t)
	tok := internalToken(t)

	// Nothing live yet.
	w := doRequest(r, http.MethodDelete, "/internal/class-1/activity", "", tok)
	if w.Code != http.StatusNotFound {
		t.Fatalf("end with no activity: status = %d, want 404", w.Code)
	}

	doRequest(r, http.MethodPost, "/internal/class-1/activity", `{"activityId":"act-1"}`, tok)

	w = doRequest(r, http.MethodDelete, "/internal/class-1/activity", "", tok)
	if w.Code != http.StatusNoContent {
		t.Fatalf("end: status = %d, body = %s", w.Code, w.Body.String())
	}
	if _, ok := mgr.LiveActivity("class-1"); ok {
		t.Error("activity still live after end")
	}

	// Ending twice is a 404, not an error loop.
	w = doRequest(r, http.MethodDelete, "/internal/class-1/activity", "", tok)
	if w.Code != http.StatusNotFound {
		t.Errorf("double end: status = %d, want 404", w.Code)
	}
}

func TestBridgeRefusesSessionTokens(t *testing.T) {
	r, _ := newTestRouter(t)

	sessionTok, err := token.Sign("alice", "class-1", token.PurposeSession, time.Minute)
	if err != nil {
		t.Fatalf("sign session token: %v", err)
	}

	tests := []struct {
		name string
		tok  string
	}{
		{"no token", ""},
		{"session token", sessionTok},
		{"garbage token", "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, http.MethodPost, "/internal/class-1/activity",
				`{"activityId":"act-1"}`, tt.tok)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}
