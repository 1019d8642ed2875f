package probes

// Tool is an external command some probes depend on.
type Tool struct {
	Name      string `json:"name"`
	UsedBy    string `json:"used_by"`
	Available bool   `json:"available"`
}

var tools = []Tool{
	{Name: "ping", UsedBy: "ping, gateway, latency, iface-ping, mtu"},
	{Name: "ip", UsedBy: "gateway, interfaces, routes, gateways"},
	{Name: "speedtest", UsedBy: "speedtest"},
	{Name: "curl", UsedBy: "download, captive"},
	{Name: "traceroute", UsedBy: "traceroute"},
	{Name: "mtr", UsedBy: "mtr"},
	{Name: "netdiscover", UsedBy: "discover"},
	{Name: "nmcli", UsedBy: "wifi"},
	{Name: "nc", UsedBy: "netcat"},
	{Name: "whois", UsedBy: "whois"},
	{Name: "dig", UsedBy: "dns"},
	{Name: "host", UsedBy: "dns"},
	{Name: "journalctl", UsedBy: "dhcp"},
}

// Tools reports which external commands are installed.
func (p *Prober) Tools() []Tool {
	out := make([]Tool, len(tools))
	for i, t := range tools {
		t.Available = p.exec.Available(t.Name)
		out[i] = t
	}
	return out
}
