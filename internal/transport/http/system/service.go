// Package system reports host and playground status.
package system

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"liveness-playground/internal/platform/logging"
	httptransport "liveness-playground/internal/transport/http"
)

// Counters reports playground state. Nil funcs are skipped.
type Counters struct {
	Sessions  func() int
	Previews  func() int
	Listeners func() int
	Endpoints func(ctx context.Context) (int, error)
}

type Service struct {
	counters Counters
	started  time.Time
	logger   *logging.Logger
}

func NewService(counters Counters, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{counters: counters, started: time.Now(), logger: logger}
}

func (s *Service) Register(_ context.Context, router *gin.RouterGroup) error {
	router.GET("/system/status", s.handleStatus)
	return nil
}

type Status struct {
	Uptime      string   `json:"uptime"`
	HostUptime  uint64   `json:"hostUptimeSeconds,omitempty"`
	CPUPercent  float64  `json:"cpuPercent"`
	MemTotal    uint64   `json:"memTotal,omitempty"`
	MemUsed     uint64   `json:"memUsed,omitempty"`
	MemPercent  float64  `json:"memPercent"`
	Goroutines  int      `json:"goroutines"`
	Sessions    int      `json:"sessions"`
	Previews    int      `json:"previews"`
	Listeners   int      `json:"listeners"`
	Endpoints   int      `json:"endpoints"`
	Unavailable []string `json:"unavailable,omitempty"`
}

func (s *Service) handleStatus(c *gin.Context) {
	ctx := c.Request.Context()
	status := Status{
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
	}

	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		status.CPUPercent = pct[0]
	} else {
		status.Unavailable = append(status.Unavailable, "cpu")
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		status.MemTotal = vm.Total
		status.MemUsed = vm.Used
		status.MemPercent = vm.UsedPercent
	} else {
		status.Unavailable = append(status.Unavailable, "memory")
	}
	if up, err := host.UptimeWithContext(ctx); err == nil {
		status.HostUptime = up
	}

	if s.counters.Sessions != nil {
		status.Sessions = s.counters.Sessions()
	}
	if s.counters.Previews != nil {
		status.Previews = s.counters.Previews()
	}
	if s.counters.Listeners != nil {
		status.Listeners = s.counters.Listeners()
	}
	if s.counters.Endpoints != nil {
		if n, err := s.counters.Endpoints(ctx); err == nil {
			status.Endpoints = n
		} else {
			s.logger.WarnTag("SYSTEM", "count endpoints: %v", err)
			status.Unavailable = append(status.Unavailable, "endpoints")
		}
	}

	httptransport.RespondSuccess(c, http.StatusOK, status, "")
}
