package gateway

import (
	"net/http"

	"github.com/coder/websocket"
)

// handleWS serves a chat bridge over a long-lived WebSocket: each inbound
// text frame is one user turn, each outbound frame the agent's reply.
// Turn errors close the socket; the bridge reconnects and retries against
// an unmodified session.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return // client gone or context cancelled
		}
		if typ != websocket.MessageText || len(data) == 0 {
			continue
		}

		reply, err := s.agent.HandleTurn(ctx, string(data))
		if err != nil {
			s.logger.Error("turn failed", "error", err)
			conn.Close(websocket.StatusInternalError, "generation failed")
			return
		}
		if err := conn.Write(ctx, websocket.MessageText, []byte(reply)); err != nil {
			return
		}
	}
}
