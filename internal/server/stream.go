package server

import (
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/curvescope/internal/events"
)

// streamBuffer is the per-client event queue depth. A client that cannot
// keep up is disconnected rather than blocking publishers.
const streamBuffer = 16

// handleEventStream streams run lifecycle events to a websocket client
// GET /api/events/ws
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	ctx := r.Context()
	queue := make(chan *events.Event, streamBuffer)
	overflow := make(chan struct{})

	forward := func(e *events.Event) {
		select {
		case queue <- e:
		default:
			select {
			case <-overflow:
			default:
				close(overflow)
			}
		}
	}

	var unsubscribe []func()
	for _, et := range []events.EventType{
		events.AnalysisStarted,
		events.AnalysisCompleted,
		events.AnalysisFailed,
		events.HorizonSkipped,
	} {
		unsubscribe = append(unsubscribe, s.bus.Subscribe(et, forward))
	}
	defer func() {
		for _, u := range unsubscribe {
			u()
		}
	}()

	s.log.Debug().Str("remote", r.RemoteAddr).Msg("Event stream client connected")

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case <-overflow:
			s.log.Warn().Str("remote", r.RemoteAddr).Msg("Event stream client too slow, disconnecting")
			conn.Close(websocket.StatusPolicyViolation, "client too slow")
			return

		case event := <-queue:
			if err := wsjson.Write(ctx, conn, event); err != nil {
				if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
					s.log.Debug().Err(err).Msg("Event stream write failed")
				}
				return
			}

		case <-heartbeat.C:
			if err := conn.Ping(ctx); err != nil {
				s.log.Debug().Err(err).Msg("Event stream heartbeat failed")
				return
			}
		}
	}
}
