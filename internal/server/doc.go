// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the local status listener of a running chat.
//
// Endpoints:
//   - GET /health  - Connection state, quality and conversation size
//   - GET /metrics - Prometheus metrics of the synchronizer
//
// The listener is optional and only started when metrics.addr is set.
package server
