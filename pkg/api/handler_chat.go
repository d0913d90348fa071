package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/zoom-oss/rtms-ingestion/pkg/database"
)

const chatSearchHitCount = 5

// chatHandler handles POST /api/chat/:speakerId. It builds a prompt
// from the speaker's rolling summary plus the top lexical search hits
// for the question within the meeting, then asks the Completer. Any
// adapter failure falls back to a canned response rather than
// surfacing a 502 to the chat client — chat is a best-effort
// convenience endpoint, not on the media ingestion critical path.
func (s *Server) chatHandler(c echo.Context) error {
	speakerID := c.Param("speakerId")

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}

	ctx := c.Request().Context()

	var summary string
	if ctxDoc, err := s.store.SpeakerContextFor(ctx, req.MeetingID, speakerID); err == nil {
		summary = ctxDoc.RecentSummary
	}

	hits, err := s.store.Search(ctx, req.Question, database.SearchFilter{MeetingUUID: req.MeetingID}, chatSearchHitCount)
	if err != nil {
		s.logger.Warn("chat: search for context failed, continuing with summary only", "error", err)
	}

	if s.completer == nil {
		return c.JSON(http.StatusOK, &ChatResponse{Answer: fallbackAnswer(summary), Fallback: true})
	}

	system := "You answer questions about what a meeting participant said, using only the provided context."
	user := buildChatPrompt(req.Question, summary, hits)

	answer, err := s.completer.Complete(ctx, system, user)
	if err != nil {
		s.logger.Warn("chat: completion failed, returning fallback", "speaker_id", speakerID, "error", err)
		return c.JSON(http.StatusOK, &ChatResponse{Answer: fallbackAnswer(summary), Fallback: true})
	}
	return c.JSON(http.StatusOK, &ChatResponse{Answer: answer})
}

func buildChatPrompt(question, summary string, hits []database.Chunk) string {
	var b strings.Builder
	if summary != "" {
		fmt.Fprintf(&b, "Speaker summary: %s\n\n", summary)
	}
	if len(hits) > 0 {
		b.WriteString("Relevant transcript excerpts:\n")
		for _, h := range hits {
			fmt.Fprintf(&b, "- %s\n", h.Text)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}

func fallbackAnswer(summary string) string {
	if summary == "" {
		return "No context is available for this speaker yet."
	}
	return "Based on what's known so far: " + summary
}
