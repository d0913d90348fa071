package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// archiveHandler handles GET /api/admin/streams/:streamId/archive. It is
// the only way a separate `rtmsd archive` CLI invocation can see what the
// Connection Registry knows about a stream, since the registry lives in
// the daemon process's memory. The manifest names what was negotiated
// and observed; it performs no decoding or muxing of the underlying
// media itself.
func (s *Server) archiveHandler(c echo.Context) error {
	if s.registry == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "archive registry not wired")
	}

	streamID := c.Param("streamId")
	stats, ok := s.registry.StreamMetadata(streamID)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "stream not found")
	}

	names := make([]string, 0, len(stats.EffectiveMask.Bits()))
	for _, bit := range stats.EffectiveMask.Bits() {
		names = append(names, bit.Name())
	}

	manifest := &ArchiveManifest{
		StreamID:      stats.StreamID,
		MeetingUUID:   stats.MeetingUUID,
		Product:       string(stats.Product),
		EffectiveMask: names,
		MediaParams:   stats.MediaParams,
		FirstPacketTS: stats.FirstPacketTS,
		LastPacketTS:  stats.LastPacketTS,
		RTTMillis:     stats.RTT.Milliseconds(),
	}
	if stats.TerminalError != nil {
		manifest.TerminalError = stats.TerminalError.Error()
	}
	return c.JSON(http.StatusOK, manifest)
}
