package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"lookout-gallery/internal/hostapi"
)

type wireRequest struct {
	Seq       int64  `json:"seq"`
	Operation string `json:"operation"`
	ID        string `json:"id"`
}

type wireResponse struct {
	Seq     int64       `json:"seq"`
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

type hostFixture struct {
	configured    bool
	toolAvailable bool
	thumbnails    map[string]string // id -> base64 payload

	configQueries atomic.Int32
}

func (f *hostFixture) serve(t *testing.T) *httptest.Server {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer func() { _ = conn.Close() }()

		for {
			var req wireRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}

			resp := wireResponse{Seq: req.Seq, Success: true}
			switch req.Operation {
			case "getConfig":
				f.configQueries.Add(1)
				resp.Result = map[string]bool{
					"configured":    f.configured,
					"toolAvailable": f.toolAvailable,
				}
			case "getThumbnail":
				payload, ok := f.thumbnails[req.ID]
				resp.Result = map[string]interface{}{
					"success":       ok,
					"payloadBase64": payload,
					"contentType":   "image/jpeg",
				}
			default:
				resp.Success = false
				resp.Error = "unknown operation"
			}

			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func connectedFetcher(t *testing.T, fixture *hostFixture) *Fetcher {
	t.Helper()

	srv := fixture.serve(t)
	host := hostapi.NewClient("ws" + strings.TrimPrefix(srv.URL, "http"))
	f := New(host)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go host.Run(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for !host.Connected() {
		if time.Now().After(deadline) {
			t.Fatal("host never connected")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return f
}

// TestAvailable tests the availability query and its session caching.
func TestAvailable(t *testing.T) {
	t.Parallel()

	fixture := &hostFixture{configured: true, toolAvailable: true}
	f := connectedFetcher(t, fixture)
	ctx := context.Background()

	if !f.Available(ctx) {
		t.Fatal("generator should be available")
	}
	if !f.Available(ctx) {
		t.Fatal("cached answer should agree")
	}
	if got := fixture.configQueries.Load(); got != 1 {
		t.Errorf("config queried %d times, want 1 (cached)", got)
	}
}

// TestAvailableNotConfigured tests that a present but unconfigured
// generator reads as unavailable.
func TestAvailableNotConfigured(t *testing.T) {
	t.Parallel()

	fixture := &hostFixture{configured: false, toolAvailable: true}
	f := connectedFetcher(t, fixture)

	if f.Available(context.Background()) {
		t.Error("unconfigured generator should be unavailable")
	}
}

// TestFetch tests the hit, miss and corrupt-payload paths.
func TestFetch(t *testing.T) {
	t.Parallel()

	fixture := &hostFixture{
		configured:    true,
		toolAvailable: true,
		thumbnails: map[string]string{
			"hit":     base64.StdEncoding.EncodeToString([]byte("jpeg-bytes")),
			"corrupt": "!!! not base64 !!!",
		},
	}
	f := connectedFetcher(t, fixture)
	ctx := context.Background()

	payload, contentType, ok := f.Fetch(ctx, "hit")
	if !ok {
		t.Fatal("Fetch should succeed for a known id")
	}
	if string(payload) != "jpeg-bytes" {
		t.Errorf("payload = %q", payload)
	}
	if contentType != "image/jpeg" {
		t.Errorf("contentType = %q", contentType)
	}

	if _, _, ok := f.Fetch(ctx, "missing"); ok {
		t.Error("Fetch should miss for an unknown id")
	}
	if _, _, ok := f.Fetch(ctx, "corrupt"); ok {
		t.Error("Fetch should reject an undecodable payload")
	}
}

// TestWireShapes pins the JSON field names the host expects.
func TestWireShapes(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(hostapi.ThumbnailResult{Success: true, PayloadBase64: "QQ==", ContentType: "image/png"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	for _, field := range []string{"success", "payloadBase64", "contentType"} {
		if !strings.Contains(string(data), field) {
			t.Errorf("wire shape missing field %q: %s", field, data)
		}
	}
}
