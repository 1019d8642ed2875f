// Package classify applies threshold rules to metric sets.
package classify

import "github.com/user/netdiag/internal/model"

// Family selects a rule table. Gateway pings and the general latency probe
// measure the same thing with different tolerances, so they keep separate
// tables.
type Family string

const (
	FamilyGateway   Family = "gateway"
	FamilyLatency   Family = "latency"
	FamilySpeedtest Family = "speedtest"
)

// Group is an ordered list of rules evaluated with early exit: the first
// rule that matches produces the group's only issue.
type Group struct {
	Name  string       `json:"name"`
	Rules []model.Rule `json:"rules"`
}

// Table is the ordered set of groups for one family.
type Table []Group

func above(metric string, threshold float64, sev model.Severity, issue, cause, remedy string) model.Rule {
	return model.Rule{Metric: metric, Comparator: model.Above, Threshold: threshold, Severity: sev, Issue: issue, Cause: cause, Remedy: remedy}
}

func below(metric string, threshold float64, sev model.Severity, issue, cause, remedy string) model.Rule {
	return model.Rule{Metric: metric, Comparator: model.Below, Threshold: threshold, Severity: sev, Issue: issue, Cause: cause, Remedy: remedy}
}

const (
	bad  = model.SeverityBad
	warn = model.SeverityWarn
)

var gatewayTable = Table{
	{Name: "packet loss", Rules: []model.Rule{
		above(model.MetricPacketLoss, 20, bad, "high packet loss", "", ""),
		above(model.MetricPacketLoss, 5, warn, "moderate packet loss", "", ""),
	}},
	{Name: "latency", Rules: []model.Rule{
		above(model.MetricLatency, 150, bad, "high latency", "", ""),
		above(model.MetricLatency, 80, warn, "latency above ideal", "", ""),
	}},
	{Name: "jitter", Rules: []model.Rule{
		above(model.MetricJitter, 20, warn, "high jitter", "", ""),
	}},
}

var latencyTable = Table{
	{Name: "packet loss", Rules: []model.Rule{
		above(model.MetricPacketLoss, 10, bad, "high packet loss",
			"weak signal, interference or network instability",
			"check the Wi-Fi signal or test over a cable"),
	}},
	{Name: "jitter", Rules: []model.Rule{
		above(model.MetricJitter, 30, bad, "high jitter",
			"bufferbloat or congestion",
			"enable QoS or test with no other devices on the network"),
		above(model.MetricJitter, 10, warn, "moderate jitter", "", ""),
	}},
	{Name: "latency", Rules: []model.Rule{
		above(model.MetricLatency, 150, bad, "very high latency",
			"slow connection or international route",
			"test DNS, retry at another time or check with the provider"),
		above(model.MetricLatency, 80, warn, "latency above ideal", "", ""),
	}},
}

const (
	lowBandwidthCause  = "limited plan, heavy traffic or a provider bottleneck"
	lowBandwidthRemedy = "check the contract, shared usage or peak hours"
)

var speedtestTable = Table{
	{Name: "packet loss", Rules: []model.Rule{
		above(model.MetricPacketLoss, 2, bad, "high packet loss",
			"possible physical instability (weak Wi-Fi, noise, damaged cable)",
			"switch interface, test over a cable, avoid obstacles"),
		above(model.MetricPacketLoss, 0, warn, "moderate packet loss",
			"occasional fluctuations, possible interference",
			"restart the modem or test with another router"),
	}},
	{Name: "jitter", Rules: []model.Rule{
		above(model.MetricJitter, 30, bad, "high jitter",
			"bufferbloat or instability under load",
			"enable QoS or replace the router"),
		above(model.MetricJitter, 10, warn, "moderate jitter", "", ""),
	}},
	{Name: "latency", Rules: []model.Rule{
		above(model.MetricLatency, 150, bad, "high latency",
			"international route or congested network",
			"test at another time or change DNS"),
		above(model.MetricLatency, 50, warn, "latency above ideal", "", ""),
	}},
	{Name: "bandwidth", Rules: []model.Rule{
		below(model.MetricDownload, 10, bad, "low bandwidth", lowBandwidthCause, lowBandwidthRemedy),
		below(model.MetricUpload, 3, bad, "low bandwidth", lowBandwidthCause, lowBandwidthRemedy),
	}},
}

var tables = map[Family]Table{
	FamilyGateway:   gatewayTable,
	FamilyLatency:   latencyTable,
	FamilySpeedtest: speedtestTable,
}

// Families lists the known families in a stable order.
func Families() []Family {
	return []Family{FamilyGateway, FamilyLatency, FamilySpeedtest}
}

// TableFor returns a copy of the rule table for f.
func TableFor(f Family) (Table, bool) {
	t, ok := tables[f]
	if !ok {
		return nil, false
	}
	out := make(Table, len(t))
	for i, g := range t {
		out[i] = Group{Name: g.Name, Rules: append([]model.Rule(nil), g.Rules...)}
	}
	return out, true
}

// FamilyFor maps a probe kind to the table that judges it.
func FamilyFor(kind model.ProbeKind) (Family, bool) {
	switch kind {
	case model.KindGatewayPing:
		return FamilyGateway, true
	case model.KindLatency, model.KindPing, model.KindInterfacePing:
		return FamilyLatency, true
	case model.KindSpeedtest:
		return FamilySpeedtest, true
	}
	return "", false
}
