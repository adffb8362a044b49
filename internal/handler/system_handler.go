package handler

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alphaexam/alphaexam-backend/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const metricsInterval = 7 * time.Second

// SystemHandler serves health checks and streams runtime metrics via SSE.
type SystemHandler struct {
	rdb       *redis.Client
	pool      *pgxpool.Pool
	startTime time.Time
	log       zerolog.Logger

	// CPU delta state, shared by every connected dashboard.
	mu        sync.Mutex
	prevIdle  uint64
	prevTotal uint64
}

func NewSystemHandler(rdb *redis.Client, pool *pgxpool.Pool, log zerolog.Logger) *SystemHandler {
	h := &SystemHandler{
		rdb:       rdb,
		pool:      pool,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
	h.prevIdle, h.prevTotal, _ = readCPUStat()
	return h
}

// Health godoc
// GET /health
// Reports 503 when PostgreSQL or Redis does not answer within two seconds.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"postgres": "ok", "redis": "ok"}
	code, status := http.StatusOK, "ok"
	if err := h.pool.Ping(ctx); err != nil {
		checks["postgres"] = "down"
		code, status = http.StatusServiceUnavailable, "degraded"
	}
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		checks["redis"] = "down"
		code, status = http.StatusServiceUnavailable, "degraded"
	}
	c.JSON(code, gin.H{
		"status": status,
		"checks": checks,
		"uptime": formatDuration(time.Since(h.startTime)),
	})
}

type systemMetrics struct {
	Timestamp int64  `json:"timestamp"`
	Uptime    string `json:"uptime"`

	CPUPercent    float64 `json:"cpu_percent"`
	MemUsedBytes  uint64  `json:"mem_used_bytes"`
	MemTotalBytes uint64  `json:"mem_total_bytes"`

	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`

	DBConnsAcquired int32 `json:"db_conns_acquired"`
	DBConnsTotal    int32 `json:"db_conns_total"`
	DBConnsMax      int32 `json:"db_conns_max"`

	// AutosaveBacklog is the number of autosaves not yet persisted.
	AutosaveBacklog int64 `json:"autosave_backlog"`
}

// SystemMetricsSSE godoc
// GET /api/admin/system/metrics
// Streams a "metrics" event every few seconds until the client leaves.
func (h *SystemHandler) SystemMetricsSSE(c *gin.Context) {
	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.log.Info().Msg("Admin connected to system metrics SSE")

	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	h.writeMetrics(c)
	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Msg("Admin disconnected from system metrics SSE")
			return
		case <-ticker.C:
			h.writeMetrics(c)
		}
	}
}

func (h *SystemHandler) writeMetrics(c *gin.Context) {
	c.SSEvent("metrics", h.collect(c.Request.Context()))
	c.Writer.Flush()
}

func (h *SystemHandler) collect(ctx context.Context) systemMetrics {
	m := systemMetrics{
		Timestamp: time.Now().Unix(),
		Uptime:    formatDuration(time.Since(h.startTime)),
		GoVersion: runtime.Version(),
	}

	if idle, total, err := readCPUStat(); err == nil {
		h.mu.Lock()
		if total > h.prevTotal {
			m.CPUPercent = (1 - float64(idle-h.prevIdle)/float64(total-h.prevTotal)) * 100
			h.prevIdle, h.prevTotal = idle, total
		}
		h.mu.Unlock()
	}

	if memTotal, memAvail, err := readMemInfo(); err == nil && memTotal > 0 {
		m.MemTotalBytes = memTotal
		m.MemUsedBytes = memTotal - memAvail
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.Goroutines = runtime.NumGoroutine()
	m.HeapAlloc = ms.HeapAlloc
	m.NumGC = ms.NumGC

	stat := h.pool.Stat()
	m.DBConnsAcquired = stat.AcquiredConns()
	m.DBConnsTotal = stat.TotalConns()
	m.DBConnsMax = stat.MaxConns()

	var err error
	if m.AutosaveBacklog, err = h.rdb.LLen(ctx, config.WorkerKey.PersistAnswersQueue).Result(); err != nil {
		h.log.Warn().Err(err).Msg("Autosave backlog unavailable")
	}
	return m
}

// readCPUStat parses /proc/stat for aggregate CPU times.
// Returns idle ticks and total ticks.
func readCPUStat() (idle, total uint64, err error) {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return 0, 0, err
	}
	line := strings.SplitN(string(data), "\n", 2)[0]
	fields := strings.Fields(line)
	if len(fields) < 5 || fields[0] != "cpu" {
		return 0, 0, fmt.Errorf("unexpected /proc/stat format")
	}
	for i := 1; i < len(fields); i++ {
		val, _ := strconv.ParseUint(fields[i], 10, 64)
		total += val
		if i == 4 {
			idle = val
		}
	}
	return idle, total, nil
}

// readMemInfo parses /proc/meminfo for MemTotal and MemAvailable in bytes.
func readMemInfo() (total, available uint64, err error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		val, _ := strconv.ParseUint(fields[1], 10, 64)
		switch fields[0] {
		case "MemTotal:":
			total = val * 1024
		case "MemAvailable:":
			available = val * 1024
		}
	}
	return total, available, scanner.Err()
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
