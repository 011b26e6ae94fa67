package hostapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{}

// fakeHost is a websocket server answering host API requests.
func fakeHost(t *testing.T, handle func(req request) response) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer func() { _ = conn.Close() }()

		for {
			var req request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			if err := conn.WriteJSON(handle(req)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func startClient(t *testing.T, url string) *Client {
	t.Helper()

	c := NewClient(url)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for !c.Connected() {
		if time.Now().After(deadline) {
			t.Fatal("client never connected")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return c
}

// TestCallNotConnected tests that calls fail fast before a connection is
// established.
func TestCallNotConnected(t *testing.T) {
	t.Parallel()

	c := NewClient("ws://127.0.0.1:0")
	if _, err := c.Browse(context.Background(), "media-source://x"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
}

// TestBrowse tests a browse round trip including result decoding.
func TestBrowse(t *testing.T) {
	t.Parallel()

	srv := fakeHost(t, func(req request) response {
		if req.Operation != OpBrowse {
			t.Errorf("operation = %q, want %q", req.Operation, OpBrowse)
		}
		if req.ID != "media-source://camera" {
			t.Errorf("id = %q", req.ID)
		}
		result, _ := json.Marshal(BrowseResult{
			Title: "Camera",
			Children: []BrowseChild{
				{ContentID: "media-source://camera/a.jpg", Kind: "image", Title: "a.jpg"},
				{ContentID: "media-source://camera/sub", Kind: "container", Title: "sub", CanExpand: true},
			},
		})
		return response{Seq: req.Seq, Success: true, Result: result}
	})

	c := startClient(t, wsURL(srv))

	result, err := c.Browse(context.Background(), "media-source://camera")
	if err != nil {
		t.Fatalf("Browse failed: %v", err)
	}
	if result.Title != "Camera" {
		t.Errorf("Title = %q, want Camera", result.Title)
	}
	if len(result.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(result.Children))
	}
	if !result.Children[1].CanExpand {
		t.Error("container child should be expandable")
	}
}

// TestResolve tests URL resolution.
func TestResolve(t *testing.T) {
	t.Parallel()

	srv := fakeHost(t, func(req request) response {
		result, _ := json.Marshal(ResolveResult{URL: "http://example/" + req.ID})
		return response{Seq: req.Seq, Success: true, Result: result}
	})

	c := startClient(t, wsURL(srv))

	url, err := c.Resolve(context.Background(), "clip")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if url != "http://example/clip" {
		t.Errorf("url = %q", url)
	}
}

// TestCallErrorResponse tests that a host-side failure surfaces as an
// error carrying the host's message.
func TestCallErrorResponse(t *testing.T) {
	t.Parallel()

	srv := fakeHost(t, func(req request) response {
		return response{Seq: req.Seq, Success: false, Error: "unknown path"}
	})

	c := startClient(t, wsURL(srv))

	_, err := c.Browse(context.Background(), "media-source://bogus")
	if err == nil || !strings.Contains(err.Error(), "unknown path") {
		t.Errorf("err = %v, want host error message", err)
	}
}

// TestCallContextCancel tests that a cancelled context abandons the call.
func TestCallContextCancel(t *testing.T) {
	t.Parallel()

	srv := fakeHost(t, func(req request) response {
		time.Sleep(time.Second)
		return response{Seq: req.Seq, Success: true}
	})

	c := startClient(t, wsURL(srv))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Browse(ctx, "media-source://slow")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

// TestOnConnectHook tests that connect hooks run on establishment.
func TestOnConnectHook(t *testing.T) {
	t.Parallel()

	srv := fakeHost(t, func(req request) response {
		return response{Seq: req.Seq, Success: true}
	})

	var fired atomic.Int32
	c := NewClient(wsURL(srv))
	c.OnConnect(func() { fired.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go c.Run(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for fired.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connect hook never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestConcurrentCalls tests sequence correlation under concurrent calls.
func TestConcurrentCalls(t *testing.T) {
	t.Parallel()

	srv := fakeHost(t, func(req request) response {
		result, _ := json.Marshal(ResolveResult{URL: "http://example/" + req.ID})
		return response{Seq: req.Seq, Success: true, Result: result}
	})

	c := startClient(t, wsURL(srv))

	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		id := string(rune('a' + i))
		go func() {
			url, err := c.Resolve(context.Background(), id)
			if err == nil && url != "http://example/"+id {
				err = errors.New("response routed to wrong caller: " + url)
			}
			errs <- err
		}()
	}

	for i := 0; i < 10; i++ {
		if err := <-errs; err != nil {
			t.Errorf("call %d: %v", i, err)
		}
	}
}
