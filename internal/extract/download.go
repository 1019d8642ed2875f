package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/user/netdiag/internal/model"
)

// DownloadResult is the parsed curl size_download;time_total pair.
type DownloadResult struct {
	Bytes   int64           `json:"bytes"`
	Seconds float64         `json:"seconds"`
	Metrics model.MetricSet `json:"metrics"`
}

// Mbps returns the measured throughput.
func (d DownloadResult) Mbps() float64 {
	if d.Metrics.DownloadMbps == nil {
		return 0
	}
	return *d.Metrics.DownloadMbps
}

// DownloadMbps converts a byte count and duration to megabits per second.
func DownloadMbps(bytes int64, seconds float64) float64 {
	return float64(bytes) * 8 / (seconds * 1_000_000)
}

// Download parses curl -w '%{size_download};%{time_total}' output.
func Download(text string) (DownloadResult, error) {
	var res DownloadResult

	parts := strings.Split(strings.Trim(strings.TrimSpace(text), "'"), ";")
	if len(parts) != 2 {
		return res, fmt.Errorf("download: expected size;time, got %q: %w", text, ErrParse)
	}

	// curl prints size_download as an integer, older builds as 123.000
	size, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || size < 0 {
		return res, fmt.Errorf("download: bad size %q: %w", parts[0], ErrParse)
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || secs <= 0 {
		return res, fmt.Errorf("download: bad duration %q: %w", parts[1], ErrParse)
	}

	res.Bytes = int64(size)
	res.Seconds = secs
	res.Metrics.DownloadMbps = model.Float(DownloadMbps(res.Bytes, secs))
	return res, nil
}
