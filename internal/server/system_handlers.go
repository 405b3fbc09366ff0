package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/portfolio-sim/internal/modules/dataset"
	"github.com/aristath/portfolio-sim/internal/scheduler"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// CacheStatsProvider reports price cache counters
type CacheStatsProvider interface {
	Stats() dataset.CacheStats
}

// JobStatusProvider reports scheduled job state
type JobStatusProvider interface {
	Status() []scheduler.JobStatus
}

// SystemHandlers serves host and process status
type SystemHandlers struct {
	log       zerolog.Logger
	workers   int
	cache     CacheStatsProvider
	jobs      JobStatusProvider
	hostStats func() (float64, float64)
	started   time.Time
}

// NewSystemHandlers creates system handlers. cache and jobs may be nil.
func NewSystemHandlers(log zerolog.Logger, workers int, cache CacheStatsProvider, jobs JobStatusProvider) *SystemHandlers {
	h := &SystemHandlers{
		log:     log.With().Str("handler", "system").Logger(),
		workers: workers,
		cache:   cache,
		jobs:    jobs,
		started: time.Now(),
	}
	h.hostStats = h.getSystemStats
	return h
}

// SystemStatusResponse is the body of GET /api/system/status
type SystemStatusResponse struct {
	Status        string                `json:"status"`
	CPUPercent    float64               `json:"cpu_percent"`
	MemoryPercent float64               `json:"memory_percent"`
	Workers       int                   `json:"workers"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
	PriceCache    *dataset.CacheStats   `json:"price_cache,omitempty"`
	Jobs          []scheduler.JobStatus `json:"jobs,omitempty"`
}

// HandleSystemStatus returns host load, worker count and cache state
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	cpuPercent, memPercent := h.hostStats()
	response := SystemStatusResponse{
		Status:        "healthy",
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Workers:       h.workers,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	}
	if h.cache != nil {
		stats := h.cache.Stats()
		response.PriceCache = &stats
	}
	if h.jobs != nil {
		response.Jobs = h.jobs.Status()
	}

	writeJSON(w, h.log, http.StatusOK, response)
}

// getSystemStats calculates CPU and RAM usage percentages.
// CPU is sampled over 100ms to keep the call fast.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, log zerolog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
