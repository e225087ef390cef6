package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

func dialStream(t *testing.T, env *testEnv) (*websocket.Conn, context.Context) {
	t.Helper()
	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/detect-duplicates/stream"
	header := http.Header{}
	header.Set("Authorization", "Bearer "+env.staffToken)
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn, ctx
}

func TestStream_ProgressThenResult(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	conn, ctx := dialStream(t, env)

	if err := wsjson.Write(ctx, conn, map[string]any{"similarity_threshold": 0.85}); err != nil {
		t.Fatalf("write request: %v", err)
	}

	var progress int
	var result map[string]any
	for result == nil {
		var frame map[string]any
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		switch frame["type"] {
		case "progress":
			progress++
		case "result":
			result = frame
		default:
			t.Fatalf("unexpected frame %v", frame)
		}
	}

	if progress == 0 {
		t.Error("no progress frames before the result")
	}
	if result["total_groups"] != float64(1) || result["total_duplicates"] != float64(3) {
		t.Errorf("result = %v, want 1 group of 3", result)
	}
}

func TestStream_InvalidThreshold(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	conn, ctx := dialStream(t, env)

	if err := wsjson.Write(ctx, conn, map[string]any{"similarity_threshold": 2}); err != nil {
		t.Fatalf("write request: %v", err)
	}

	var frame map[string]any
	for {
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if frame["type"] != "progress" {
			break
		}
	}
	if frame["type"] != "error" {
		t.Errorf("frame = %v, want error", frame)
	}
}

func TestStream_RequiresStaff(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/detect-duplicates/stream"
	_, resp, err := websocket.Dial(context.Background(), url, nil)
	if err == nil {
		t.Fatal("Dial() without token should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("response = %v, want 401", resp)
	}
}
