package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kestrelhq/kestrel/internal/config"
	"github.com/kestrelhq/kestrel/internal/engine"
	"github.com/kestrelhq/kestrel/internal/stream"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	build := func(ctx context.Context, sessionID, personalityID string) (*engine.Engine, error) {
		return engine.New(ctx, engine.Options{
			SessionID:     sessionID,
			PersonalityID: personalityID,
			Language:      "en",
			Logger:        zerolog.Nop(),
			Rand:          rand.New(rand.NewSource(3)),
			Delivery:      stream.NewDelivery(time.Millisecond, time.Millisecond, rand.New(rand.NewSource(3)), func(time.Duration) {}, nil),
		})
	}
	hub := engine.NewHub(build, time.Hour, nil, zerolog.Nop())
	srv := New(config.Config{DefaultPersonality: "friendly"}, hub, nil, zerolog.Nop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func createSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp := postJSON(t, ts.URL+"/v1/chat/session", map[string]string{"session_id": "sess-1"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session status = %d, want 201", resp.StatusCode)
	}
	var created createSessionResponse
	decodeBody(t, resp, &created)
	if created.SessionID != "sess-1" {
		t.Fatalf("SessionID = %q, want %q", created.SessionID, "sess-1")
	}
	return created.SessionID
}

func TestCreateSessionAndTurn(t *testing.T) {
	ts := newTestServer(t)
	id := createSession(t, ts)

	resp := postJSON(t, ts.URL+"/v1/chat/turn", map[string]string{
		"session_id": id,
		"text":       "Bonjour",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("turn status = %d, want 200", resp.StatusCode)
	}
	var turn turnResponse
	decodeBody(t, resp, &turn)
	if turn.Response.Text == "" {
		t.Fatalf("empty response text")
	}
	if turn.Response.Emotion != "happy" {
		t.Fatalf("Emotion = %q, want %q", turn.Response.Emotion, "happy")
	}
	if turn.Context.LastIntent != "greeting" {
		t.Fatalf("LastIntent = %q, want %q", turn.Context.LastIntent, "greeting")
	}
}

func TestTurnUnknownSession(t *testing.T) {
	ts := newTestServer(t)
	resp := postJSON(t, ts.URL+"/v1/chat/turn", map[string]string{
		"session_id": "nope",
		"text":       "hello",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTurnMissingText(t *testing.T) {
	ts := newTestServer(t)
	id := createSession(t, ts)
	resp := postJSON(t, ts.URL+"/v1/chat/turn", map[string]string{"session_id": id})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCreateSessionRejectsUnknownPersonalityGracefully(t *testing.T) {
	ts := newTestServer(t)
	// Unknown IDs resolve to the default profile rather than failing.
	resp := postJSON(t, ts.URL+"/v1/chat/session", map[string]string{"personality": "nonexistent"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var created createSessionResponse
	decodeBody(t, resp, &created)
	if created.Personality != "friendly" {
		t.Fatalf("Personality = %q, want fallback %q", created.Personality, "friendly")
	}
}

func TestExternalTurnInjectsResponse(t *testing.T) {
	ts := newTestServer(t)
	id := createSession(t, ts)

	resp := postJSON(t, ts.URL+"/v1/chat/turn/external", map[string]string{
		"session_id":    id,
		"text":          "tell me about storms",
		"response_text": "Storms form when warm air rises.",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var turn turnResponse
	decodeBody(t, resp, &turn)
	if turn.Response.Text != "Storms form when warm air rises." {
		t.Fatalf("Text = %q, want injected text", turn.Response.Text)
	}
}

func TestMemoryEndpoints(t *testing.T) {
	ts := newTestServer(t)
	id := createSession(t, ts)
	postJSON(t, ts.URL+"/v1/chat/turn", map[string]string{"session_id": id, "text": "hello there"}).Body.Close()

	resp, err := http.Get(ts.URL + "/v1/chat/session/" + id + "/memory/stats")
	if err != nil {
		t.Fatalf("GET stats: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status = %d, want 200", resp.StatusCode)
	}
	var stats struct {
		MessageCount int `json:"message_count"`
	}
	decodeBody(t, resp, &stats)
	if stats.MessageCount != 2 {
		t.Fatalf("MessageCount = %d, want 2", stats.MessageCount)
	}

	resp, err = http.Get(ts.URL + "/v1/chat/session/" + id + "/memory")
	if err != nil {
		t.Fatalf("GET memory: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("memory status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestEndSession(t *testing.T) {
	ts := newTestServer(t)
	id := createSession(t, ts)

	resp := postJSON(t, ts.URL+"/v1/chat/session/"+id+"/end", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("end status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/v1/chat/session/"+id+"/end", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("double end status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestHealthAndPerf(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz", "/v1/perf/latency"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d, want 200", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestPerfLatencyReset(t *testing.T) {
	ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/v1/perf/latency", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE /v1/perf/latency: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
