// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/kazipath/kazipath/services/assistant/datatypes"
	"github.com/kazipath/kazipath/services/assistant/middleware"
)

// defaultHistoryLimit caps GET /history when no limit query is given.
const defaultHistoryLimit = 50

// HistoryReader is the read/delete surface of the history store the
// handlers need. Nil-able: a deployment without Postgres serves 503 here.
type HistoryReader interface {
	RecentTurns(ctx context.Context, ownerID string, n int, asc bool) ([]datatypes.ChatTurn, error)
	DeleteHistory(ctx context.Context, ownerID string) (int64, error)
}

// GetHistory serves GET /v1/assistant/history?limit=N, newest first.
func GetHistory(store HistoryReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlersTracer.Start(c.Request.Context(), "GetHistory")
		defer span.End()

		identity := middleware.IdentityFrom(c)
		if identity == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is not enabled"})
			return
		}

		limit := defaultHistoryLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}

		turns, err := store.RecentTurns(ctx, identity, limit, false)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to load history", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"turns": turns, "count": len(turns)})
	}
}

// DeleteHistory serves DELETE /v1/assistant/history.
func DeleteHistory(store HistoryReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlersTracer.Start(c.Request.Context(), "DeleteHistory")
		defer span.End()

		identity := middleware.IdentityFrom(c)
		if identity == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history is not enabled"})
			return
		}

		deleted, err := store.DeleteHistory(ctx, identity)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to delete history", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete history"})
			return
		}
		slog.Info("Deleted conversation history", "turns", deleted)
		c.JSON(http.StatusOK, gin.H{"deleted": deleted})
	}
}
