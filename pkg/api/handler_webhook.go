package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zoom-oss/rtms-ingestion/pkg/router"
	"github.com/zoom-oss/rtms-ingestion/pkg/signature"
)

const (
	webhookSignatureHeader = "x-rtms-signature"
	webhookTimestampHeader = "x-rtms-request-timestamp"
	webhookDispatchTimeout = 30 * time.Second
)

// webhookHandler handles POST /webhook: the url_validation challenge
// replies synchronously, every other event is acknowledged 200
// immediately and dispatched to the Router asynchronously, after its
// signature is verified.
func (s *Server) webhookHandler(c echo.Context) error {
	rawBody, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}

	var req WebhookRequest
	if err := json.Unmarshal(rawBody, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed webhook body")
	}

	if req.Event == "endpoint.url_validation" {
		cred, ok := s.creds.ResolveDefault()
		if !ok {
			s.logger.Error("no credential configured, cannot answer url_validation")
			return echo.NewHTTPError(http.StatusServiceUnavailable, "no credential configured")
		}
		resp, err := s.router.HandleEvent(c.Request().Context(), req.Event, cred.SecretToken, req.Payload)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return c.JSON(http.StatusOK, resp)
	}

	product, ok := router.ProductForEvent(req.Event)
	if !ok {
		s.logger.Warn("webhook event with unrecognized product prefix, acknowledging and dropping", "event", req.Event)
		return c.NoContent(http.StatusOK)
	}
	cred, ok := s.creds.Resolve(product)
	if !ok {
		s.logger.Error("no credential configured for product, rejecting webhook", "product", product)
		return echo.NewHTTPError(http.StatusUnauthorized, "unknown product")
	}

	timestamp := c.Request().Header.Get(webhookTimestampHeader)
	sigHeader := c.Request().Header.Get(webhookSignatureHeader)
	if !signature.VerifyWebhookSignature(timestamp, string(rawBody), cred.SecretToken, sigHeader) {
		return echo.NewHTTPError(http.StatusUnauthorized, "signature verification failed")
	}

	event, payload := req.Event, req.Payload
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), webhookDispatchTimeout)
		defer cancel()
		if _, err := s.router.HandleEvent(ctx, event, cred.SecretToken, payload); err != nil {
			s.logger.Error("webhook dispatch failed", "event", event, "error", err)
		}
	}()
	return c.NoContent(http.StatusOK)
}
