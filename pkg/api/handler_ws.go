package api

import (
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// wsHandler handles GET /api/ws/:meetingId. It upgrades the HTTP
// connection and subscribes it to the meeting's live-broadcast
// channel on the Hub, blocking until the client disconnects.
func (s *Server) wsHandler(c echo.Context) error {
	if s.hub == nil {
		return echo.NewHTTPError(503, "live broadcast not available")
	}
	meetingID := c.Param("meetingId")

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		// Origin validation is deferred to the operator's reverse proxy;
		// this endpoint trusts whatever sits in front of it.
		InsecureSkipVerify: true,
	})
	if err != nil {
		return err
	}
	defer conn.CloseNow()

	ctx := c.Request().Context()
	connID := uuid.NewString()

	if err := s.hub.Subscribe(ctx, connID, meetingID, conn); err != nil {
		s.logger.Error("ws: subscribe failed", "meeting_id", meetingID, "error", err)
		return nil
	}
	defer s.hub.Unsubscribe(ctx, connID, meetingID)

	// Block until the client closes the connection; this endpoint is
	// push-only, so any inbound frame is read and discarded.
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return nil
		}
	}
}
