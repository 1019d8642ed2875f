package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const linuxPing = `PING 8.8.8.8 (8.8.8.8) 56(84) bytes of data.
64 bytes from 8.8.8.8: icmp_seq=1 ttl=117 time=10.0 ms
64 bytes from 8.8.8.8: icmp_seq=2 ttl=117 time=12.0 ms
64 bytes from 8.8.8.8: icmp_seq=3 ttl=117 time=9.0 ms

--- 8.8.8.8 ping statistics ---
3 packets transmitted, 3 received, 0% packet loss, time 2003ms
rtt min/avg/max/mdev = 9.000/10.333/12.000/1.247 ms
`

func TestPing_MeanAndConsecutiveJitter(t *testing.T) {
	res := Ping(linuxPing)

	require.False(t, res.Inconclusive())
	assert.Equal(t, []float64{10, 12, 9}, res.Samples)
	require.NotNil(t, res.Metrics.LatencyMs)
	assert.InDelta(t, 10.333, *res.Metrics.LatencyMs, 0.001)
	require.NotNil(t, res.Metrics.JitterMs)
	assert.Equal(t, 3.0, *res.Metrics.JitterMs)
	require.NotNil(t, res.Metrics.PacketLossPct)
	assert.Equal(t, 0.0, *res.Metrics.PacketLossPct)
}

func TestPing_NoSamplesIsInconclusive(t *testing.T) {
	text := `PING 10.0.0.1 (10.0.0.1) 56(84) bytes of data.

--- 10.0.0.1 ping statistics ---
10 packets transmitted, 0 received, 100% packet loss, time 9211ms
`
	res := Ping(text)

	assert.True(t, res.Inconclusive())
	assert.Nil(t, res.Metrics.LatencyMs)
	assert.Nil(t, res.Metrics.JitterMs)
	require.NotNil(t, res.Metrics.PacketLossPct)
	assert.Equal(t, 100.0, *res.Metrics.PacketLossPct)
}

func TestPing_EmptyOutput(t *testing.T) {
	res := Ping("")

	assert.True(t, res.Inconclusive())
	assert.True(t, res.Metrics.Empty())
}

func TestPing_SingleSampleHasNoJitter(t *testing.T) {
	res := Ping("64 bytes from 1.1.1.1: icmp_seq=1 ttl=57 time=14.2 ms\n")

	require.NotNil(t, res.Metrics.LatencyMs)
	assert.Equal(t, 14.2, *res.Metrics.LatencyMs)
	assert.Nil(t, res.Metrics.JitterMs)
	assert.Nil(t, res.Metrics.PacketLossPct)
}

func TestPing_IntegerSamples(t *testing.T) {
	// macOS and busybox can print whole milliseconds
	res := Ping("time=20 ms\ntime=25 ms\n")

	assert.Equal(t, []float64{20, 25}, res.Samples)
	assert.Equal(t, 5.0, *res.Metrics.JitterMs)
}

func TestPacketLoss(t *testing.T) {
	tests := []struct {
		text string
		want float64
		ok   bool
	}{
		{"10 packets transmitted, 8 received, 20% packet loss", 20, true},
		{"5 packets transmitted, 4 packets received, 20.0% packet loss", 20, true},
		{"3 packets transmitted, 2 received, 33.3333% packet loss", 33, true},
		{"no summary", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := PacketLoss(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJitter(t *testing.T) {
	_, ok := Jitter(nil)
	assert.False(t, ok)

	j, ok := Jitter([]float64{5, 5})
	assert.True(t, ok)
	assert.Equal(t, 0.0, j)

	j, _ = Jitter([]float64{1, 30, 29, 2})
	assert.Equal(t, 29.0, j)
}
