// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command protozoa runs a single active-inference agent in a simulated
// petri dish.
//
// Usage:
//
//	go run ./cmd/protozoa run                  # live dashboard
//	go run ./cmd/protozoa headless --max-ticks 5000 --log-format json
//	go run ./cmd/protozoa config --config protozoa.yaml
//
// With Prometheus metrics:
//
//	go run ./cmd/protozoa headless --metrics-addr :9464
//	curl http://localhost:9464/metrics
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
