package devclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type recorded struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

func fakeEngine(t *testing.T, status int, reply any) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization")}
		if r.Body != nil {
			json.NewDecoder(r.Body).Decode(&rec.body)
		}
		calls = append(calls, rec)
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(ts.Close)
	return ts, &calls
}

func TestSetFastTicksSendsToken(t *testing.T) {
	ts, calls := fakeEngine(t, http.StatusOK, map[string]bool{"fast_ticks": true})
	c := New(ts.URL, "secret")

	on, err := c.SetFastTicks(context.Background(), true)
	if err != nil {
		t.Fatalf("set fast ticks: %v", err)
	}
	if !on {
		t.Fatalf("expected fast ticks reported on")
	}
	got := (*calls)[0]
	if got.method != http.MethodPost || got.path != "/api/v1/dev/fast-ticks" {
		t.Fatalf("unexpected request %s %s", got.method, got.path)
	}
	if got.auth != "Bearer secret" {
		t.Fatalf("expected bearer token got %q", got.auth)
	}
	if got.body["enabled"] != true {
		t.Fatalf("expected enabled=true body got %v", got.body)
	}
}

func TestGrantBody(t *testing.T) {
	ts, calls := fakeEngine(t, http.StatusOK, map[string]any{"ok": true})
	c := New(ts.URL, "secret")

	if err := c.Grant(context.Background(), Grant{Money: 250, Item: "medkit", Quantity: 2}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	body := (*calls)[0].body
	if body["money"] != float64(250) || body["item"] != "medkit" || body["quantity"] != float64(2) {
		t.Fatalf("unexpected grant body %v", body)
	}
	if _, ok := body["energy"]; ok {
		t.Fatalf("expected zero fields omitted got %v", body)
	}
}

func TestRefusalIsSentinel(t *testing.T) {
	ts, _ := fakeEngine(t, http.StatusConflict, map[string]any{"ok": false})
	c := New(ts.URL, "secret")

	err := c.Scale(context.Background(), -1)
	if !errors.Is(err, ErrRefused) {
		t.Fatalf("expected ErrRefused got %v", err)
	}
}

func TestHTTPErrorCarriesStatus(t *testing.T) {
	ts, _ := fakeEngine(t, http.StatusUnauthorized, "unauthorized")
	c := New(ts.URL, "wrong")

	err := c.Reset(context.Background())
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected 401 error got %v", err)
	}
}

func TestWaitReadyGivesUp(t *testing.T) {
	c := New("http://127.0.0.1:1", "")
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := c.WaitReady(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded got %v", err)
	}
}

func TestStatus(t *testing.T) {
	ts, calls := fakeEngine(t, http.StatusOK, map[string]any{"name": "Astral District", "active": true, "fast_ticks": true})
	c := New(ts.URL, "")

	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.Active || !st.FastTicks {
		t.Fatalf("unexpected status %+v", st)
	}
	if (*calls)[0].auth != "" {
		t.Fatalf("expected no auth header without a key")
	}
}
