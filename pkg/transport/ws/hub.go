// Package ws adapts an orchestrator.Broker subscription to a WebSocket
// connection, using the same coder/websocket + wsjson idiom the teacher's
// TTS client dials with, inverted into a server-side writer.
package ws

import (
	"context"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/kitsu-vt/orchestrator/pkg/orchestrator"
)

// Serve subscribes to broker and forwards every published event to conn as
// JSON until the connection errors or ctx is cancelled, then unsubscribes.
// One goroutine per connection; the caller is expected to run it after
// accepting the WebSocket (accept/handshake is outside this module's scope,
// per the spec's "thin HTTP/WS surface").
func Serve(ctx context.Context, broker *orchestrator.Broker, conn *websocket.Conn, logger orchestrator.Logger) {
	if logger == nil {
		logger = &orchestrator.NoOpLogger{}
	}

	token, queue := broker.Subscribe()
	defer broker.Unsubscribe(token)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-queue:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				logger.Warn("websocket write failed, closing subscriber", "error", err)
				return
			}
		}
	}
}
