// Copyright (C) 2025 KaziPath Ltd (eng@kazipath.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package middleware holds gin middleware for the assistant service.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// IdentityKey is the gin context key the resolved caller identity is stored
// under. Empty string means unauthenticated.
const IdentityKey = "kazipath.identity"

// userHeader is set by the trusted API gateway after it has resolved the
// session token to a user id. Token issuance and session internals live in
// the auth service, not here.
const userHeader = "X-Kazipath-User"

// Identity resolves the caller identity for downstream handlers.
//
// Absence of an identity is not rejected here: the pipeline turns it into
// the requires-auth conversational response, so the middleware only
// extracts, never enforces.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := strings.TrimSpace(c.GetHeader(userHeader))
		if identity == "" {
			// Opaque bearer token straight from a first-party client. The
			// gateway normally strips this and sets the user header; using
			// the raw token as identity keeps rate limiting coherent either
			// way.
			auth := c.GetHeader("Authorization")
			if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
				identity = strings.TrimSpace(after)
			}
		}
		c.Set(IdentityKey, identity)
		c.Next()
	}
}

// IdentityFrom reads the resolved identity off the gin context.
func IdentityFrom(c *gin.Context) string {
	return c.GetString(IdentityKey)
}
