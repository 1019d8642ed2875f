// Package extract turns raw probe output into metric sets.
//
// Every function here is pure. A pattern that does not match leaves the
// corresponding metric nil rather than zero.
package extract

import (
	"errors"
	"math"
	"regexp"
	"strconv"

	"github.com/user/netdiag/internal/model"
)

// ErrParse reports output that is present but has no recognisable shape.
var ErrParse = errors.New("could not interpret probe output")

var (
	pingTimeRe = regexp.MustCompile(`time=(\d+(?:\.\d+)?)`)
	pingLossRe = regexp.MustCompile(`(\d+)(?:\.\d+)?% packet loss`)
)

// PingMetrics is the result of parsing ping-family output.
type PingMetrics struct {
	Samples []float64
	Metrics model.MetricSet
}

// Inconclusive reports that no latency sample was found, which is distinct
// from a run that measured zero loss.
func (p PingMetrics) Inconclusive() bool {
	return len(p.Samples) == 0
}

// Ping parses ping, gateway ping and interface ping output.
func Ping(text string) PingMetrics {
	var out PingMetrics

	for _, m := range pingTimeRe.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		out.Samples = append(out.Samples, v)
	}

	if len(out.Samples) > 0 {
		out.Metrics.LatencyMs = model.Float(Mean(out.Samples))
	}
	if j, ok := Jitter(out.Samples); ok {
		out.Metrics.JitterMs = model.Float(j)
	}
	if loss, ok := PacketLoss(text); ok {
		out.Metrics.PacketLossPct = model.Float(loss)
	}

	return out
}

// PacketLoss returns the integer part of the "N% packet loss" figure.
func PacketLoss(text string) (float64, bool) {
	m := pingLossRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return float64(v), true
}

// Mean returns the arithmetic mean of samples, or 0 for none.
func Mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}

// Jitter returns the largest absolute difference between consecutive
// samples. It needs at least two samples.
func Jitter(samples []float64) (float64, bool) {
	if len(samples) < 2 {
		return 0, false
	}
	var max float64
	for i := 1; i < len(samples); i++ {
		if d := math.Abs(samples[i] - samples[i-1]); d > max {
			max = d
		}
	}
	return max, true
}
