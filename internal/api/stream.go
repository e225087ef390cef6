package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/mentora/internal/dedup"
	"github.com/p-n-ai/mentora/internal/metrics"
)

const streamTimeout = 5 * time.Minute

type progressFrame struct {
	Type    string `json:"type"`
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
}

type resultFrame struct {
	Type string `json:"type"`
	detectResponse
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// handleStream runs one detection over a WebSocket. The client sends a
// detect request as its first message; the server replies with progress
// frames, then a single result or error frame, then closes.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	metrics.WSConnections.Inc()
	defer metrics.WSConnections.Dec()

	conn.SetReadLimit(maxBodyBytes)
	ctx, cancel := context.WithTimeout(r.Context(), streamTimeout)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		slog.Debug("stream closed before request", "error", err)
		return
	}

	var body detectBody
	if err := decodeBytes(data, detectSchema, &body); err != nil {
		_ = wsjson.Write(ctx, conn, errorFrame{Type: "error", Error: err.Error()})
		conn.Close(websocket.StatusPolicyViolation, "invalid request")
		return
	}

	// The client sends nothing more; CloseRead cancels ctx if it goes away.
	ctx = conn.CloseRead(ctx)

	last := -1
	progress := func(p dedup.Progress) {
		if p.Percent == last {
			return
		}
		last = p.Percent
		if err := wsjson.Write(ctx, conn, progressFrame{Type: "progress", Stage: p.Stage, Percent: p.Percent}); err != nil {
			cancel()
		}
	}

	report, err := s.dedup.Detect(ctx, body.toRequest(), progress)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			slog.Info("stream detection abandoned", "error", err)
			return
		}
		msg := "internal error"
		code := websocket.StatusInternalError
		if errors.Is(err, dedup.ErrInvalidThreshold) {
			msg = err.Error()
			code = websocket.StatusPolicyViolation
		} else {
			slog.Error("stream detection failed", "error", err)
		}
		_ = wsjson.Write(ctx, conn, errorFrame{Type: "error", Error: msg})
		conn.Close(code, "detection failed")
		return
	}

	if err := wsjson.Write(ctx, conn, resultFrame{Type: "result", detectResponse: newDetectResponse(report)}); err != nil {
		slog.Warn("stream result write failed", "error", err)
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
