package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup.
func InitializeMetrics() {
	for _, op := range []string{"probe", "trim", "normalize", "concat", "frame"} {
		for _, status := range []string{"success", "error", "timeout", "cancelled"} {
			TranscoderOperationsTotal.WithLabelValues(op, status)
		}
		TranscoderOperationDuration.WithLabelValues(op)
	}

	for _, result := range []string{"accepted", "too_large", "invalid_duration", "probe_failed", "error"} {
		UploadsTotal.WithLabelValues(result)
	}

	for _, status := range []string{"success", "rejected", "error", "timeout"} {
		TrimsTotal.WithLabelValues(status)
	}

	for _, state := range []string{"resolving", "normalizing", "concatenating", "completed", "failed"} {
		MergeJobsTotal.WithLabelValues(state)
	}

	for _, result := range []string{"valid", "missing", "not_found", "invalid", "expired", "error"} {
		ShareValidationsTotal.WithLabelValues(result)
	}

	for _, status := range []string{"200", "206", "416"} {
		RangeResponsesTotal.WithLabelValues(status)
	}

	for _, status := range []string{"success", "error"} {
		PosterGenerationsTotal.WithLabelValues(status)
	}

	for _, origin := range []string{"upload", "trim", "merge"} {
		AssetsTotal.WithLabelValues(origin)
	}

	for _, op := range []string{"stat", "open"} {
		FilesystemRetryAttempts.WithLabelValues(op)
	}

	for _, op := range []string{"create_asset", "get_asset", "get_assets", "set_share", "clear_share", "count_assets", "count_active_shares"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
