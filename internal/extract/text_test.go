package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/netdiag/internal/model"
)

func TestDownload(t *testing.T) {
	res, err := Download("125000000;20.000000")
	require.NoError(t, err)

	assert.Equal(t, int64(125000000), res.Bytes)
	assert.Equal(t, 20.0, res.Seconds)
	assert.Equal(t, 50.0, res.Mbps())
}

func TestDownload_QuotedAndFloatSize(t *testing.T) {
	res, err := Download("'1000000.000;0.5'\n")
	require.NoError(t, err)
	assert.Equal(t, 16.0, res.Mbps())
}

func TestDownload_Malformed(t *testing.T) {
	for _, text := range []string{"", "curl: (6) Could not resolve host", "100;0", "abc;1.0", "1;2;3"} {
		_, err := Download(text)
		assert.ErrorIs(t, err, ErrParse, text)
	}
}

func TestEchoReply(t *testing.T) {
	assert.True(t, EchoReply("64 bytes from 8.8.8.8: icmp_seq=1 ttl=117 time=10.0 ms"))
	assert.False(t, EchoReply(""))
	assert.False(t, EchoReply("ping: nosuchhost: Name or service not known"))
}

func TestFragmentationNeeded(t *testing.T) {
	assert.True(t, FragmentationNeeded("From 192.168.1.1 icmp_seq=1 Frag needed and DF set (mtu = 1492)"))
	assert.True(t, FragmentationNeeded("ping: local error: Message too long, mtu=1500"))
	assert.True(t, FragmentationNeeded("1 packets transmitted, 0 received, 100% packet loss"))
	assert.False(t, FragmentationNeeded("1 packets transmitted, 1 received, 0% packet loss"))
}

func TestCaptivePortal(t *testing.T) {
	assert.True(t, CaptivePortal("HTTP/1.1 204 No Content\r\nContent-Length: 0\r\n"))
	assert.False(t, CaptivePortal("HTTP/1.1 302 Found\r\nLocation: http://login.hotel.example/\r\n"))
	// Known weakness: an unrelated 204 anywhere still counts
	assert.True(t, CaptivePortal("HTTP/1.1 200 OK\r\nContent-Length: 2048\r\n"))
}

func TestWiFi(t *testing.T) {
	text := `SSID             BSSID              SIGNAL  SECURITY   CHAN
HomeNet          AA:BB:CC:DD:EE:01  82      WPA2       6
Cafe             AA:BB:CC:DD:EE:02  40      WPA1 WPA2  11
--               AA:BB:CC:DD:EE:03  17
`
	aps := WiFi(text)
	require.Len(t, aps, 3)

	assert.Equal(t, model.AccessPoint{SSID: "HomeNet", BSSID: "AA:BB:CC:DD:EE:01", Signal: "82", Security: "WPA2", Channel: "6"}, aps[0])
	// The fifth column keeps the remainder of the row
	assert.Equal(t, "WPA1", aps[1].Security)
	assert.Equal(t, "WPA2  11", aps[1].Channel)
	// Short rows are padded, not dropped
	assert.Equal(t, model.AccessPoint{SSID: "--", BSSID: "AA:BB:CC:DD:EE:03", Signal: "17"}, aps[2])
}

func TestWiFi_BlankRowsKept(t *testing.T) {
	text := "SSID BSSID SIGNAL SECURITY CHAN\r\nHomeNet AA:BB 82 WPA2 6\r\n\r\n   \nCafe AA:CC 40\n"

	aps := WiFi(text)
	require.Len(t, aps, 4)
	assert.Equal(t, "HomeNet", aps[0].SSID)
	assert.Equal(t, model.AccessPoint{}, aps[1])
	assert.Equal(t, model.AccessPoint{}, aps[2])
	assert.Equal(t, model.AccessPoint{SSID: "Cafe", BSSID: "AA:CC", Signal: "40"}, aps[3])
}

func TestWiFi_HeaderOnly(t *testing.T) {
	assert.Empty(t, WiFi("SSID BSSID SIGNAL SECURITY CHAN\n"))
	assert.Empty(t, WiFi(""))
}

func TestTraceroute(t *testing.T) {
	text := `traceroute to 8.8.8.8 (8.8.8.8), 30 hops max, 60 byte packets
 1  192.168.1.1  1.234 ms
 2  * * *
 3  core.isp.example (100.64.0.1)  8.9 ms
 4  8.8.8.8  12 ms
`
	hops := Traceroute(text)
	require.Len(t, hops, 4)

	assert.Equal(t, model.TraceHop{HopNum: 1, IP: "192.168.1.1", LatencyMs: 1.234}, hops[0])
	assert.Equal(t, model.TraceHop{HopNum: 2, Lost: true}, hops[1])
	assert.Equal(t, model.TraceHop{HopNum: 3, IP: "100.64.0.1", LatencyMs: 8.9}, hops[2])
	assert.Equal(t, 12.0, hops[3].LatencyMs)
}

func TestInterfaces(t *testing.T) {
	text := `1: lo: <LOOPBACK,UP,LOWER_UP> mtu 65536 qdisc noqueue state UNKNOWN mode DEFAULT
2: enp3s0: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 qdisc fq_codel state UP mode DEFAULT
3: wlo1: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 qdisc noqueue state UP mode DORMANT
4: docker0: <NO-CARRIER,BROADCAST,MULTICAST,UP> mtu 1500 qdisc noqueue state DOWN
5: veth12ab@if4: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 qdisc noqueue master docker0
6: eth0.10@eth0: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 qdisc noqueue state UP
`
	assert.Equal(t, []string{"enp3s0", "wlo1", "eth0.10"}, Interfaces(text))
}

func TestGateway(t *testing.T) {
	routes := `default via 192.168.1.1 dev wlo1 proto dhcp metric 600
default via 10.0.0.1 dev enp3s0 proto dhcp metric 100
192.168.1.0/24 dev wlo1 proto kernel scope link src 192.168.1.20 metric 600
`
	gw, ok := Gateway(routes)
	assert.True(t, ok)
	assert.Equal(t, "192.168.1.1", gw)
	assert.Len(t, DefaultRoutes(routes), 2)

	_, ok = Gateway("10.0.0.0/8 dev tun0 scope link\n")
	assert.False(t, ok)
}

func TestDiscoveries(t *testing.T) {
	text := `
 Currently scanning: 192.168.1.0/24   |   Screen View: Unique Hosts
 _____________________________________________________________________________
   IP            At MAC Address     Count     Len  MAC Vendor / Hostname
 -----------------------------------------------------------------------------
 192.168.1.1     aa:bb:cc:dd:ee:ff      1      60  Example Router
 192.168.1.23    11:22:33:44:55:66      2     120  Unknown vendor
`
	rows := Discoveries(text)
	require.Len(t, rows, 3)
	assert.Contains(t, rows[1], "192.168.1.1")
	assert.False(t, IsDiscoveryLine("   IP            At MAC Address     Count"))
}
