package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"pipetrace/internal/feedback"
)

const (
	feedbackWSWriteWait = 10 * time.Second
	feedbackWSPongWait  = 60 * time.Second
	feedbackWSPingEvery = (feedbackWSPongWait * 9) / 10
)

var feedbackWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

// HandleFeedbackWS streams progress events to a websocket client. The
// retained backlog is replayed first so a client connecting mid-build still
// sees how the run started.
func (h *Handler) HandleFeedbackWS(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		http.Error(w, "feedback stream is not enabled", http.StatusServiceUnavailable)
		return
	}
	conn, err := feedbackWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	h.metrics.SubscriberConnected()
	defer h.metrics.SubscriberGone()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(feedbackWSPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedbackWSPongWait))
	})

	// Subscribe before snapshotting the backlog; an event duplicated across
	// the boundary is harmless, a dropped one is not.
	events, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()
	backlog := h.hub.Recent()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(feedbackWSPingEvery)
		defer ticker.Stop()

		for _, e := range backlog {
			if err := writeFeedbackWS(conn, e); err != nil {
				return
			}
		}
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				if err := writeFeedbackWS(conn, e); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(feedbackWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// The stream is one-way: the read loop only services pong control frames
	// and notices the peer going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	cancel()
	<-writerDone
}

func writeFeedbackWS(conn *websocket.Conn, e feedback.Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(feedbackWSWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(e)
}
