package extract

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/user/netdiag/internal/model"
)

// SpeedtestResult is the parsed Ookla speedtest --format=json document.
type SpeedtestResult struct {
	Metrics        model.MetricSet `json:"metrics"`
	ServerName     string          `json:"server_name,omitempty"`
	ServerLocation string          `json:"server_location,omitempty"`
	ISP            string          `json:"isp,omitempty"`
	ResultURL      string          `json:"result_url,omitempty"`
}

// bytesPerSecToMbps converts the bandwidth fields, which are bytes per second.
func bytesPerSecToMbps(v float64) float64 {
	return v * 8 / 1_000_000
}

// Speedtest parses the JSON emitted by the speedtest CLI. Jitter and packet
// loss default to zero when the document omits them; latency and both
// bandwidth figures are required.
func Speedtest(text string) (SpeedtestResult, error) {
	var res SpeedtestResult

	text = strings.TrimSpace(text)
	if text == "" || !gjson.Valid(text) {
		return res, fmt.Errorf("speedtest: invalid JSON: %w", ErrParse)
	}

	doc := gjson.Parse(text)
	if !doc.IsObject() {
		return res, fmt.Errorf("speedtest: expected an object: %w", ErrParse)
	}

	fields := gjson.GetMany(text, "ping.latency", "download.bandwidth", "upload.bandwidth")
	for i, name := range []string{"ping.latency", "download.bandwidth", "upload.bandwidth"} {
		if fields[i].Type != gjson.Number {
			return res, fmt.Errorf("speedtest: missing %s: %w", name, ErrParse)
		}
	}

	res.Metrics.LatencyMs = model.Float(fields[0].Float())
	res.Metrics.DownloadMbps = model.Float(bytesPerSecToMbps(fields[1].Float()))
	res.Metrics.UploadMbps = model.Float(bytesPerSecToMbps(fields[2].Float()))
	res.Metrics.JitterMs = model.Float(doc.Get("ping.jitter").Float())
	res.Metrics.PacketLossPct = model.Float(doc.Get("packetLoss").Float())

	res.ServerName = doc.Get("server.name").String()
	res.ServerLocation = doc.Get("server.location").String()
	res.ISP = doc.Get("isp").String()
	res.ResultURL = doc.Get("result.url").String()

	if err := res.Metrics.Validate(); err != nil {
		return SpeedtestResult{}, fmt.Errorf("speedtest: %v: %w", err, ErrParse)
	}

	return res, nil
}
