package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/portfolio-sim/internal/domain"
	"github.com/aristath/portfolio-sim/internal/modules/analysis"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	streamReadTimeout  = 30 * time.Second
	streamWriteTimeout = 10 * time.Second
)

// Stream event types
const (
	EventProgress = "progress"
	EventReport   = "report"
	EventError    = "error"
)

// StreamEvent is one message sent over the analysis websocket.
type StreamEvent struct {
	Type     string             `json:"type"`
	Progress *analysis.Progress `json:"progress,omitempty"`
	Report   *analysis.Report   `json:"report,omitempty"`
	Error    string             `json:"error,omitempty"`
	Status   int                `json:"status,omitempty"`
}

// HandleStream handles GET /api/analysis/stream.
//
// The client sends one request payload as JSON; the server answers with a
// progress event per stage followed by a report or error event, then closes.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to accept websocket")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "unexpected server error")

	readCtx, cancelRead := context.WithTimeout(r.Context(), streamReadTimeout)
	var payload RequestPayload
	err = wsjson.Read(readCtx, conn, &payload)
	cancelRead()
	if err != nil {
		h.log.Debug().Err(err).Msg("Failed to read stream request")
		conn.Close(websocket.StatusUnsupportedData, "expected an analysis request")
		return
	}

	// Cancels ctx when the client disconnects
	ctx := conn.CloseRead(r.Context())

	send := func(ev StreamEvent) error {
		wctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
		defer cancel()
		return wsjson.Write(wctx, conn, ev)
	}

	var report *analysis.Report
	req, err := payload.ToRequest()
	if err == nil {
		report, err = h.service.Run(ctx, req, func(p analysis.Progress) {
			if werr := send(StreamEvent{Type: EventProgress, Progress: &p}); werr != nil {
				h.log.Debug().Err(werr).Str("stage", string(p.Stage)).Msg("Failed to send progress")
			}
		})
	}

	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			h.log.Debug().Msg("Stream client went away")
			return
		}
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(err).Msg("Streamed analysis failed")
		}
		if werr := send(StreamEvent{Type: EventError, Error: err.Error(), Status: status}); werr != nil {
			h.log.Debug().Err(werr).Msg("Failed to send error event")
			return
		}
		conn.Close(closeStatusFor(err), "analysis failed")
		return
	}

	if err := send(StreamEvent{Type: EventReport, Report: report}); err != nil {
		h.log.Debug().Err(err).Msg("Failed to send report")
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func closeStatusFor(err error) websocket.StatusCode {
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrDataUnavailable) {
		return websocket.StatusPolicyViolation
	}
	return websocket.StatusInternalError
}
