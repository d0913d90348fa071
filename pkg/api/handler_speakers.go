package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// meetingSpeakersHandler handles GET /api/meeting/:numericId/speakers.
func (s *Server) meetingSpeakersHandler(c echo.Context) error {
	numericID, err := strconv.ParseInt(c.Param("numericId"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "numericId must be an integer")
	}

	rows, err := s.store.SpeakersForMeeting(c.Request().Context(), numericID)
	if err != nil {
		return mapStoreError(err)
	}

	var uuid string
	if len(rows) > 0 {
		uuid = rows[0].MeetingUUID
	} else {
		uuid, err = s.store.MeetingByNumericID(c.Request().Context(), numericID)
		if err != nil {
			return mapStoreError(err)
		}
	}

	speakers := make([]SpeakerSummary, len(rows))
	for i, r := range rows {
		speakers[i] = SpeakerSummary{
			SpeakerID:     r.SpeakerID,
			RecentSummary: r.RecentSummary,
			Topics:        r.Topics,
			SegmentCount:  r.SegmentCount,
		}
	}

	return c.JSON(http.StatusOK, &MeetingSpeakersResponse{
		MeetingID: numericID,
		UUID:      uuid,
		Speakers:  speakers,
	})
}

// speakerContextHandler handles GET /api/speaker/:speakerId/context?meetingId=….
// Returns a null context_summary rather than 404 when the speaker has
// no recorded context yet, per the documented HTTP surface. meetingId
// is required: a speaker_id is only unique within one meeting.
func (s *Server) speakerContextHandler(c echo.Context) error {
	speakerID := c.Param("speakerId")
	meetingID := c.QueryParam("meetingId")
	if meetingID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "meetingId query parameter is required")
	}

	ctxDoc, err := s.store.SpeakerContextFor(c.Request().Context(), meetingID, speakerID)
	if err != nil {
		return c.JSON(http.StatusOK, &SpeakerContextResponse{
			SpeakerID:      speakerID,
			MeetingUUID:    meetingID,
			ContextSummary: nil,
		})
	}

	summary := ctxDoc.RecentSummary
	return c.JSON(http.StatusOK, &SpeakerContextResponse{
		SpeakerID:      ctxDoc.SpeakerID,
		MeetingUUID:    ctxDoc.MeetingUUID,
		ContextSummary: &summary,
		Topics:         ctxDoc.Topics,
		SegmentCount:   ctxDoc.SegmentCount,
	})
}
