package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zoom-oss/rtms-ingestion/pkg/database"
)

// semanticSearchHandler handles POST /api/semantic-search.
func (s *Server) semanticSearchHandler(c echo.Context) error {
	var req SemanticSearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	hits, err := s.store.Search(c.Request().Context(), req.Query,
		database.SearchFilter{MeetingUUID: req.MeetingID, SpeakerID: req.SpeakerID}, req.Size)
	if err != nil {
		return mapStoreError(err)
	}

	out := make([]SearchHit, len(hits))
	for i, h := range hits {
		out[i] = SearchHit{ChunkID: h.ChunkID, MeetingID: h.MeetingID, Text: h.Text, SpeakerIDs: h.SpeakerIDs}
	}
	return c.JSON(http.StatusOK, &SemanticSearchResponse{Hits: out})
}

// chunksHandler handles GET /api/chunks/:meetingId.
func (s *Server) chunksHandler(c echo.Context) error {
	meetingID := c.Param("meetingId")
	chunks, err := s.store.ChunksForMeeting(c.Request().Context(), meetingID)
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, &ChunksResponse{Chunks: chunks})
}
