package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/matside-backend/internal/http/response"
	"github.com/yungbote/matside-backend/internal/idempotency"
	"github.com/yungbote/matside-backend/internal/platform/logger"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type dedupRig struct {
	router *gin.Engine
	clock  *testClock
	store  *idempotency.Memory
	calls  int
	bodies []string
}

func newDedupRig(t *testing.T) *dedupRig {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rig := &dedupRig{clock: &testClock{t: time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)}}
	rig.store = idempotency.NewMemory(idempotency.WithClock(rig.clock.Now))
	t.Cleanup(func() { _ = rig.store.Close() })

	dedup := NewPaymentDedup(logger.Nop(), rig.store, nil)
	rig.router = gin.New()
	rig.router.Use(dedup.Handler())
	handler := func(c *gin.Context) {
		raw, _ := io.ReadAll(c.Request.Body)
		rig.calls++
		rig.bodies = append(rig.bodies, string(raw))
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
	rig.router.POST("/api/create-payment-intent", handler)
	rig.router.POST("/api/registrations/validate", handler)
	return rig
}

func (r *dedupRig) post(path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.router.ServeHTTP(rec, req)
	return rec
}

const dedupBody = `{"sessionId":"sess-1","email":"Dan@Example.com","firstName":"Dan","lastName":"Gable","eventId":1,"option":"full"}`

func TestPaymentDedupRejectsRepeatWithinWindow(t *testing.T) {
	rig := newDedupRig(t)

	if rec := rig.post("/api/create-payment-intent", dedupBody, nil); rec.Code != http.StatusOK {
		t.Fatalf("first request: got %d", rec.Code)
	}
	rig.clock.Advance(30 * time.Second)
	rec := rig.post("/api/create-payment-intent", dedupBody, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d want 429", rec.Code)
	}
	if rig.calls != 1 {
		t.Fatalf("handler calls: got %d want 1", rig.calls)
	}

	var body response.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "duplicate_request" || body.Message == "" || body.UserFriendlyMessage == "" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestPaymentDedupAllowsAfterWindow(t *testing.T) {
	rig := newDedupRig(t)

	rig.post("/api/create-payment-intent", dedupBody, nil)
	rig.clock.Advance(61 * time.Second)
	if rec := rig.post("/api/create-payment-intent", dedupBody, nil); rec.Code != http.StatusOK {
		t.Fatalf("after window: got %d", rec.Code)
	}
	if rig.calls != 2 {
		t.Fatalf("handler calls: got %d want 2", rig.calls)
	}
}

func TestPaymentDedupKeyIgnoresCaseAndWhitespace(t *testing.T) {
	rig := newDedupRig(t)

	rig.post("/api/create-payment-intent", dedupBody, nil)
	alt := `{"sessionId":" sess-1 ","email":"dan@example.com ","firstName":"DAN","lastName":"gable"}`
	if rec := rig.post("/api/create-payment-intent", alt, nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("normalised tuple: got %d want 429", rec.Code)
	}
}

func TestPaymentDedupDistinctRegistrantsPass(t *testing.T) {
	rig := newDedupRig(t)

	rig.post("/api/create-payment-intent", dedupBody, nil)
	sibling := strings.Replace(dedupBody, `"firstName":"Dan"`, `"firstName":"Tom"`, 1)
	if rec := rig.post("/api/create-payment-intent", sibling, nil); rec.Code != http.StatusOK {
		t.Fatalf("sibling registration: got %d", rec.Code)
	}
}

func TestPaymentDedupRestoresBody(t *testing.T) {
	rig := newDedupRig(t)

	rig.post("/api/create-payment-intent", dedupBody, nil)
	if len(rig.bodies) != 1 || rig.bodies[0] != dedupBody {
		t.Fatalf("handler saw body %q", rig.bodies)
	}
}

func TestPaymentDedupSkipsOtherPaths(t *testing.T) {
	rig := newDedupRig(t)

	for i := 0; i < 3; i++ {
		if rec := rig.post("/api/registrations/validate", dedupBody, nil); rec.Code != http.StatusOK {
			t.Fatalf("validate %d: got %d", i, rec.Code)
		}
	}
	if rig.store.Len() != 0 {
		t.Fatalf("store should be untouched, has %d keys", rig.store.Len())
	}
}

func TestPaymentDedupUsesSessionHeader(t *testing.T) {
	rig := newDedupRig(t)

	body := `{"email":"dan@example.com","firstName":"Dan","lastName":"Gable"}`
	hdr := map[string]string{headerSessionID: "sess-hdr"}
	rig.post("/api/create-payment-intent", body, hdr)
	if rec := rig.post("/api/create-payment-intent", body, hdr); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("header session: got %d want 429", rec.Code)
	}
	if rec := rig.post("/api/create-payment-intent", body, map[string]string{headerSessionID: "sess-other"}); rec.Code != http.StatusOK {
		t.Fatalf("other session: got %d", rec.Code)
	}
}

func TestPaymentDedupFailsOpen(t *testing.T) {
	rig := newDedupRig(t)
	_ = rig.store.Close()

	for i := 0; i < 2; i++ {
		if rec := rig.post("/api/create-payment-intent", dedupBody, nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d with closed store: got %d", i, rec.Code)
		}
	}
	if rig.calls != 2 {
		t.Fatalf("handler calls: got %d want 2", rig.calls)
	}
}

func TestAttemptKey(t *testing.T) {
	a := AttemptKey("s", "A@b.com", "Dan", "Gable")
	b := AttemptKey(" s", "a@b.com", "dan ", "GABLE")
	if a != b {
		t.Fatalf("keys differ: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256, got %q", a)
	}
	if AttemptKey("s", "a@b.com", "dan", "x") == a {
		t.Fatal("different tuples share a key")
	}
}
