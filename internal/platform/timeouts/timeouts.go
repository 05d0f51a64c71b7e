// Package timeouts collects the durations shared across process boundaries.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long servers wait for in-flight work when stopping.
const Shutdown = 5 * time.Second

// WebhookSend caps a single push delivery attempt.
const WebhookSend = 10 * time.Second

// WebsocketWrite caps a single live-update frame write.
const WebsocketWrite = 5 * time.Second
