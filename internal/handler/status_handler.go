/*
Package handler provides the HTTP handlers and routing setup for the relay server.

This file contains the status handler, a synchronous query surface reporting
process uptime, live connection and room counts, and resident memory usage.
*/
package handler

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"

	"wprchat/internal/app/chat"
	"wprchat/internal/pkg/logx"
	"wprchat/internal/pkg/resp"
)

var startedAt = time.Now()

// StatusData is the response body of the /status endpoint.
type StatusData struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime"`
	Connections   int    `json:"connections"`
	Rooms         int    `json:"rooms"`
	MemoryUsage   string `json:"memoryUsage"`
	Timestamp     string `json:"timestamp"`
}

// HandleStatus creates an HTTP HandlerFunc that answers status queries from
// the hub's own event loop, so the counts can never race the relay state.
func HandleStatus(hub *chat.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := hub.Stats()

		data := StatusData{
			Status:        "ok",
			UptimeSeconds: int64(time.Since(startedAt).Seconds()),
			Connections:   stats.Connections,
			Rooms:         stats.Rooms,
			MemoryUsage:   residentMemory(),
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
		}

		resp.RespondSuccess(w, r, data)
	}
}

// residentMemory reports the RSS of the current process in whole megabytes.
func residentMemory() string {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logx.Warn("Failed to open own process for memory stats", "error", err.Error())
		return "unknown"
	}

	memInfo, err := p.MemoryInfo()
	if err != nil {
		logx.Warn("Failed to read process memory info", "error", err.Error())
		return "unknown"
	}

	return fmt.Sprintf("%dMB", memInfo.RSS/1024/1024)
}
