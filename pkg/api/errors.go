package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/jackc/pgx/v5"

	"github.com/zoom-oss/rtms-ingestion/pkg/rtmserr"
)

// mapStoreError maps persistence-layer errors to HTTP error responses.
// pgx.ErrNoRows surfaces from the Store wrapped in an rtmserr-free
// fmt.Errorf, so the check is a plain errors.Is against the sentinel
// rather than an rtmserr category lookup.
func mapStoreError(err error) *echo.HTTPError {
	if errors.Is(err, pgx.ErrNoRows) {
		return echo.NewHTTPError(http.StatusNotFound, "resource not found")
	}

	var rerr *rtmserr.RTMSError
	if errors.As(err, &rerr) {
		return echo.NewHTTPError(categoryStatus(rerr.Category), rerr.Error())
	}

	slog.Error("unexpected store error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

// categoryStatus maps an RTMSError category to the HTTP status an API
// caller should see when one surfaces directly from a handler (rare —
// most RTMSError instances stay internal to the stream/session layer).
func categoryStatus(cat rtmserr.Category) int {
	switch cat {
	case rtmserr.CategoryAuth, rtmserr.CategorySecurity:
		return http.StatusUnauthorized
	case rtmserr.CategoryRequest, rtmserr.CategoryProtocol:
		return http.StatusBadRequest
	case rtmserr.CategoryMeeting, rtmserr.CategoryStream:
		return http.StatusNotFound
	case rtmserr.CategoryLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
