// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kazipath/kazipath/services/assistant/handlers"
	"github.com/kazipath/kazipath/services/assistant/middleware"
	"github.com/kazipath/kazipath/services/assistant/services"
)

// SetupRoutes registers the assistant's endpoints on the router.
// historyStore may be nil (history endpoints then serve 503); probes feed
// the health endpoint.
func SetupRoutes(router *gin.Engine, svc *services.AssistantService,
	historyStore handlers.HistoryReader, probes map[string]handlers.Probe) {

	router.GET("/health", handlers.HealthCheck(probes))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.Identity())
	{
		assistant := v1.Group("/assistant")
		{
			assistant.POST("/chat", handlers.HandleChat(svc))
			assistant.GET("/history", handlers.GetHistory(historyStore))
			assistant.DELETE("/history", handlers.DeleteHistory(historyStore))
		}
	}
}
