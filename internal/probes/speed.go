package probes

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/user/netdiag/internal/classify"
	"github.com/user/netdiag/internal/extract"
	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/runner"
	"github.com/user/netdiag/internal/util"
)

// Speedtest runs the Ookla speedtest CLI and classifies its JSON result.
func (p *Prober) Speedtest(ctx context.Context) model.ProbeResult {
	res := model.ProbeResult{Invocation: model.ProbeInvocation{Kind: model.KindSpeedtest}}
	if !p.require(&res, "speedtest") {
		res.Diagnosis.Remedies = []string{"install the Ookla speedtest CLI (packagecloud.io/ookla/speedtest-cli)"}
		return res
	}

	out := p.exec.RunCaptured(ctx, runner.Cmd("speedtest", "--accept-license", "--accept-gdpr", "--format=json"))
	if !usable(&res, out) {
		res.Outputs = append(res.Outputs, out)
		return res
	}

	st, err := extract.Speedtest(out.Text)
	if err != nil {
		res.Outputs = append(res.Outputs, out)
		res.Diagnosis = parseFailure(err)
		return res
	}
	out.JSON = []byte(out.Text)
	res.Outputs = append(res.Outputs, out)

	res.Metrics = st.Metrics
	res.AddDetail("Server", "%s (%s)", st.ServerName, st.ServerLocation)
	res.AddDetail("ISP", "%s", st.ISP)
	if st.ResultURL != "" {
		res.AddDetail("Result", "%s", st.ResultURL)
	}
	judge(&res)
	return res
}

// Download times a curl download of url and grades the throughput.
func (p *Prober) Download(ctx context.Context, url string) model.ProbeResult {
	if url == "" && len(p.cfg.DownloadURLs) > 0 {
		url = p.cfg.DownloadURLs[0]
	}
	res := model.ProbeResult{Invocation: model.ProbeInvocation{Kind: model.KindDownload, URL: url}}
	if url == "" {
		res.Diagnosis = model.Diagnosis{Outcome: model.OutcomeNoData, Note: "no download URL configured"}
		return res
	}
	if !p.require(&res, "curl") {
		return res
	}

	out := p.exec.RunCaptured(ctx, runner.Cmd("curl", "-o", "/dev/null", "-s", "-w", "%{size_download};%{time_total}", url))
	res.Outputs = append(res.Outputs, out)
	if !usable(&res, out) {
		return res
	}

	dl, err := extract.Download(out.Text)
	if err != nil {
		res.Diagnosis = parseFailure(err)
		return res
	}

	res.Metrics = dl.Metrics
	res.AddDetail("URL", "%s", url)
	res.AddDetail("Total time", "%.2f s", dl.Seconds)
	res.AddDetail("Downloaded", "%d bytes (%s)", dl.Bytes, humanize.Bytes(uint64(dl.Bytes)))
	res.Diagnosis = model.Diagnosis{
		Outcome: model.OutcomeOK,
		Label:   classify.DownloadLabel(dl.Mbps()),
	}
	return res
}

func parseFailure(err error) model.Diagnosis {
	util.Warn("Could not interpret probe output: %v", err)
	note := err.Error()
	if !errors.Is(err, extract.ErrParse) {
		note = fmt.Sprintf("%v: %v", extract.ErrParse, err)
	}
	return model.Diagnosis{Outcome: model.OutcomeParseFailure, Note: note}
}
