package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/Maksikos-ctrl/SystemMonitor/internal/errors"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/history"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/metrics"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/ranker"
)

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	snapshot, ok := s.store.Current()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, errors.ErrUnavailable,
			"no snapshot collected yet")
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleProcesses(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	limit := ranker.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.ErrInvalidArgument,
				"limit must be an integer")
			return
		}
		if parsed > 0 {
			limit = parsed
		}
	}

	ranking := s.store.LatestRanking()
	if len(ranking) > limit {
		ranking = ranking[:limit]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"processes": ranking,
		"count":     len(ranking),
	})
}

func (s *Server) handleGPU(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	snapshot, ok := s.store.Current()
	if !ok || snapshot.GPU == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"available": false,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"available": true,
		"gpu":       snapshot.GPU,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	status := "ok"
	dbStatus := "disabled"

	if s.repository != nil {
		ctx, cancel := contextWithTimeout(r)
		defer cancel()

		if err := s.repository.Ping(ctx); err != nil {
			status = "degraded"
			dbStatus = "unreachable"
			s.logger.Warn().
				Str("error_code", string(errors.CodeOf(err))).
				Msg("Health check failed to reach database")
		} else {
			dbStatus = "ok"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"database":  dbStatus,
		"version":   Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	if s.repository == nil {
		writeError(w, http.StatusServiceUnavailable, errors.ErrUnavailable,
			"history persistence is disabled")
		return
	}

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	query := r.URL.Query()

	metric := query.Get("metric")
	if metric != "" && !validMetric(metric) {
		writeError(w, http.StatusBadRequest, errors.ErrInvalidArgument,
			"unknown metric name")
		return
	}

	if raw := query.Get("hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			writeError(w, http.StatusBadRequest, errors.ErrInvalidArgument,
				"hours must be a positive integer")
			return
		}

		records, err := s.repository.QueryHours(ctx, hours)
		if err != nil {
			s.logger.ErrorWithCode(asAppError(err)).Msg("History query failed")
			writeError(w, http.StatusInternalServerError, errors.CodeOf(err),
				"history query failed")
			return
		}

		s.writeHistory(w, records, metric)
		return
	}

	from, to, err := parseRange(query.Get("from"), query.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.ErrInvalidArgument,
			"from/to must be RFC3339 timestamps")
		return
	}

	limit := 0
	if raw := query.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			writeError(w, http.StatusBadRequest, errors.ErrInvalidArgument,
				"limit must be an integer")
			return
		}
	}

	records, err := s.repository.Query(ctx, from, to, limit)
	if err != nil {
		s.logger.ErrorWithCode(asAppError(err)).Msg("History query failed")
		writeError(w, http.StatusInternalServerError, errors.CodeOf(err),
			"history query failed")
		return
	}

	s.writeHistory(w, records, metric)
}

// metricPoint is one sample of a single projected metric series.
type metricPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     *float64  `json:"value"`
}

// writeHistory renders full records, or a single metric series when a
// metric projection was requested.
func (s *Server) writeHistory(w http.ResponseWriter, records []history.Record, metric string) {
	if metric == "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"records": records,
			"count":   len(records),
		})
		return
	}

	points := make([]metricPoint, 0, len(records))
	for i := range records {
		points = append(points, metricPoint{
			Timestamp: records[i].Timestamp,
			Value:     metricValue(&records[i].Snapshot, metric),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"metric": metric,
		"points": points,
		"count":  len(points),
	})
}

func validMetric(name string) bool {
	return metricValue(&metrics.Snapshot{}, name) != nil || nullableMetric(name)
}

// nullableMetric names the series that are legitimately absent on some
// records, so a nil projection is data rather than an unknown name.
func nullableMetric(name string) bool {
	switch name {
	case "cpu_temperature", "gpu_temperature", "motherboard_temperature",
		"disk_temperature", "max_temperature", "gpu_usage":
		return true
	default:
		return false
	}
}

func metricValue(s *metrics.Snapshot, name string) *float64 {
	v := func(f float64) *float64 { return &f }

	switch name {
	case "cpu_usage":
		return v(s.CPUUsage)
	case "memory_total":
		return v(float64(s.MemoryTotal))
	case "memory_used":
		return v(float64(s.MemoryUsed))
	case "memory_available":
		return v(float64(s.MemoryAvailable))
	case "swap_total":
		return v(float64(s.SwapTotal))
	case "swap_used":
		return v(float64(s.SwapUsed))
	case "disk_total":
		return v(float64(s.DiskTotal))
	case "disk_used":
		return v(float64(s.DiskUsed))
	case "disk_available":
		return v(float64(s.DiskAvailable))
	case "network_sent_kbps":
		return v(s.NetworkSentKbps)
	case "network_recv_kbps":
		return v(s.NetworkRecvKbps)
	case "process_count":
		return v(float64(s.ProcessCount))
	case "system_uptime":
		return v(float64(s.SystemUptime))
	case "gpu_usage":
		if s.GPU == nil {
			return nil
		}
		return v(s.GPU.Usage)
	case "cpu_temperature":
		return s.CPUTemperature
	case "gpu_temperature":
		return s.GPUTemperature
	case "motherboard_temperature":
		return s.MotherboardTemperature
	case "disk_temperature":
		return s.DiskTemperature
	case "max_temperature":
		return s.MaxTemperature
	default:
		return nil
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}

	if s.repository == nil {
		writeError(w, http.StatusServiceUnavailable, errors.ErrUnavailable,
			"history persistence is disabled")
		return
	}

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	count, err := s.repository.Count(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errors.CodeOf(err),
			"stats query failed")
		return
	}

	avgHour, err := s.repository.AverageCPU(ctx, 1)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errors.CodeOf(err),
			"stats query failed")
		return
	}

	avgDay, err := s.repository.AverageCPU(ctx, 24)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errors.CodeOf(err),
			"stats query failed")
		return
	}

	payload := map[string]any{
		"snapshot_count":    count,
		"avg_cpu_usage_1h":  avgHour,
		"avg_cpu_usage_24h": avgDay,
	}

	if snapshot, ok := s.store.Current(); ok {
		payload["current_warning_level"] = snapshot.Warning().String()
		payload["max_temperature"] = floatOrNil(snapshot.MaxTemperature)
	}

	writeJSON(w, http.StatusOK, payload)
}

func contextWithTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), requestTimeout)
}

// parseRange interprets from/to query parameters. Absent bounds default to
// the last 24 hours up to now.
func parseRange(fromRaw, toRaw string) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.Add(-24 * time.Hour)
	to := now

	var err error
	if fromRaw != "" {
		if from, err = time.Parse(time.RFC3339, fromRaw); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if toRaw != "" {
		if to, err = time.Parse(time.RFC3339, toRaw); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}

	return from, to, nil
}

func asAppError(err error) errors.Error {
	var appErr errors.Error
	if errors.As(err, &appErr) {
		return appErr
	}

	return errors.New().Wrap(errors.ErrInternal, err)
}

func floatOrNil(v *float64) any {
	if v == nil {
		return nil
	}

	return *v
}
