// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// healthProbeTimeout bounds each subsystem probe so the endpoint itself
// stays fast.
const healthProbeTimeout = 2 * time.Second

// Probe reports one subsystem's reachability.
type Probe func(ctx context.Context) error

// HealthCheck serves GET /health with per-subsystem status. Nil probes are
// reported as disabled. The endpoint returns 200 as long as the process is
// serving; degraded subsystems are visible in the body, because the
// assistant is designed to answer (via fallback) through any of them being
// down.
func HealthCheck(probes map[string]Probe) gin.HandlerFunc {
	return func(c *gin.Context) {
		subsystems := make(map[string]string, len(probes))
		degraded := false
		for name, probe := range probes {
			if probe == nil {
				subsystems[name] = "disabled"
				continue
			}
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthProbeTimeout)
			err := probe(ctx)
			cancel()
			if err != nil {
				subsystems[name] = "degraded"
				degraded = true
			} else {
				subsystems[name] = "ok"
			}
		}

		status := "ok"
		if degraded {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{"status": status, "subsystems": subsystems})
	}
}
