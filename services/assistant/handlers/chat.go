// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the gin HTTP handlers for the assistant.
// Handlers stay thin: bind, delegate to the service, write JSON.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/kazipath/kazipath/services/assistant/datatypes"
	"github.com/kazipath/kazipath/services/assistant/middleware"
	"github.com/kazipath/kazipath/services/assistant/services"
)

var handlersTracer = otel.Tracer("kazipath.assistant.handlers")

// HandleChat serves POST /v1/assistant/chat.
//
// Always 200 with a complete ChatResponse for any well-formed request — the
// pipeline maps rate limits, missing auth, and internal failures to
// conversational outcomes. 400 only for malformed bodies.
func HandleChat(svc *services.AssistantService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := handlersTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()

		var req datatypes.ChatRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse chat request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		resp := svc.Process(ctx, middleware.IdentityFrom(c), req)
		c.JSON(http.StatusOK, resp)
	}
}
