// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// validateNATSURL accepts a comma-separated list of NATS server URLs.
func validateNATSURL(rawURL string) error {
	for _, part := range strings.Split(rawURL, ",") {
		parsedURL, err := url.Parse(strings.TrimSpace(part))
		if err != nil {
			return fmt.Errorf("failed to parse URL: %w", err)
		}

		validSchemes := map[string]bool{"nats": true, "tls": true, "ws": true, "wss": true}
		if !validSchemes[parsedURL.Scheme] {
			return fmt.Errorf("scheme must be nats, tls, ws, or wss, got: %s", parsedURL.Scheme)
		}

		if parsedURL.Host == "" {
			return fmt.Errorf("host is required (e.g., localhost:4222, nats.example.com)")
		}
	}
	return nil
}
