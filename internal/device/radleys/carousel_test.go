package radleys

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labforge/labdevice-server/internal/protocol/labline"
)

// scriptedPort 按脚本应答的串口替身
type scriptedPort struct {
	opened  bool
	writes  []string
	replies []string
	readErr error
}

func (p *scriptedPort) Open() error  { p.opened = true; return nil }
func (p *scriptedPort) Close() error { p.opened = false; return nil }

func (p *scriptedPort) Write(b []byte) error {
	p.writes = append(p.writes, string(b))
	return nil
}

func (p *scriptedPort) ReadUntil(terminator string) (string, error) {
	if p.readErr != nil {
		return "", p.readErr
	}
	if len(p.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	r := p.replies[0]
	p.replies = p.replies[1:]
	return r, nil
}

func newCarousel(port *scriptedPort, sim bool) *Carousel {
	return New(port, Config{Name: "carousel-1", Simulation: sim})
}

func TestStatus_DecodeTable(t *testing.T) {
	tests := []struct {
		reply string
		want  string
	}{
		{"STATUS -1", "REMOTE BLOCKED"},
		{"STATUS 0", "MANUAL"},
		{"STATUS 1", "REMOTE START"},
		{"STATUS 2", "REMOTE STOP"},
		// (-2, 3) 之外的码一律 ERROR；-2 本身在区间外
		{"STATUS -2", "ERROR"},
		{"STATUS 3", "ERROR"},
		{"STATUS -17", "ERROR"},
		{"STATUS 99", "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			port := &scriptedPort{replies: []string{tt.reply}}
			c := newCarousel(port, false)
			assert.Equal(t, tt.want, c.Status(context.Background()))
		})
	}
}

func TestStatus_NeverFails(t *testing.T) {
	port := &scriptedPort{readErr: errors.New("timeout")}
	c := newCarousel(port, false)
	assert.Equal(t, "ERROR", c.Status(context.Background()))

	// 应答畸形同样折算为 ERROR
	port = &scriptedPort{replies: []string{"???"}}
	c = newCarousel(port, false)
	assert.Equal(t, "ERROR", c.Status(context.Background()))
}

func TestIsIdle(t *testing.T) {
	for reply, want := range map[string]bool{
		"STATUS 1":  true,
		"STATUS 0":  false,
		"STATUS -1": false,
		"STATUS 2":  false,
		"STATUS -7": false,
	} {
		port := &scriptedPort{replies: []string{reply}}
		c := newCarousel(port, false)
		assert.Equal(t, want, c.IsIdle(context.Background()), "reply %q", reply)
	}

	// 连接失败计为非空闲
	c := newCarousel(&scriptedPort{readErr: errors.New("timeout")}, false)
	assert.False(t, c.IsIdle(context.Background()))
}

func TestIsConnected(t *testing.T) {
	tests := []struct {
		name string
		port *scriptedPort
		want bool
	}{
		{"remote_stop_counts_connected", &scriptedPort{replies: []string{"STATUS 2"}}, true},
		{"manual_counts_connected", &scriptedPort{replies: []string{"STATUS 0"}}, true},
		{"remote_blocked", &scriptedPort{replies: []string{"STATUS -1"}}, false},
		{"negative_error_code", &scriptedPort{replies: []string{"STATUS -5"}}, false},
		{"transport_failure", &scriptedPort{readErr: errors.New("timeout")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCarousel(tt.port, false)
			assert.Equal(t, tt.want, c.IsConnected(context.Background()))
		})
	}
}

func TestGetTemperature_SensorSelection(t *testing.T) {
	port := &scriptedPort{replies: []string{"IN_PV_3 55.5"}}
	c := newCarousel(port, false)

	v, err := c.GetTemperature(context.Background(), 0)
	require.NoError(t, err)
	assert.InDelta(t, 55.5, v, 1e-9)
	assert.Equal(t, []string{"IN_PV_3\r\n"}, port.writes)

	port = &scriptedPort{replies: []string{"IN_PV_1 21.0"}}
	c = newCarousel(port, false)
	v, err = c.GetTemperature(context.Background(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 21.0, v, 1e-9)
	assert.Equal(t, []string{"IN_PV_1\r\n"}, port.writes)
}

func TestGetTemperature_InvalidSensor(t *testing.T) {
	port := &scriptedPort{}
	c := newCarousel(port, false)

	var iae *labline.InvalidArgumentError
	for _, sensor := range []int{2, -1, 7} {
		_, err := c.GetTemperature(context.Background(), sensor)
		require.True(t, errors.As(err, &iae), "sensor %d: got %v", sensor, err)
	}
	assert.Empty(t, port.writes, "invalid sensor must not reach the device")
}

func TestSetTemperature_EncodesFrame(t *testing.T) {
	port := &scriptedPort{replies: []string{"OUT_SP_1 150.0"}}
	c := newCarousel(port, false)

	require.NoError(t, c.SetTemperature(context.Background(), 150, 0))
	assert.Equal(t, []string{"OUT_SP_1 150\r\n"}, port.writes)
}

func TestSetTemperature_OutOfBounds(t *testing.T) {
	port := &scriptedPort{}
	c := newCarousel(port, false)

	var iae *labline.InvalidArgumentError
	require.True(t, errors.As(c.SetTemperature(context.Background(), 19, 0), &iae))
	require.True(t, errors.As(c.SetTemperature(context.Background(), 301, 0), &iae))
	assert.Empty(t, port.writes)
}

func TestInitialize_Handshake(t *testing.T) {
	port := &scriptedPort{replies: []string{"PA_NEW"}}
	c := newCarousel(port, false)

	require.NoError(t, c.Initialize(context.Background()))
	assert.True(t, port.opened)
	assert.Equal(t, []string{"PA_NEW\r\n"}, port.writes)
}

func TestSimulation_IsConnectedSkipsTransport(t *testing.T) {
	port := &scriptedPort{readErr: errors.New("must not be touched")}
	c := newCarousel(port, true)

	assert.True(t, c.IsConnected(context.Background()))
	assert.Empty(t, port.writes)
	assert.False(t, port.opened)
}

func TestSimulation_CommandsSuppressed(t *testing.T) {
	port := &scriptedPort{}
	c := newCarousel(port, true)

	require.NoError(t, c.Initialize(context.Background()))
	require.NoError(t, c.SetTemperature(context.Background(), 150, 0))
	require.NoError(t, c.StartTemperatureRegulation(context.Background()))
	assert.Empty(t, port.writes)
	assert.False(t, port.opened)
}

func TestModeTables(t *testing.T) {
	port := &scriptedPort{replies: []string{"IN_MODE_2 1"}}
	c := newCarousel(port, false)
	mode, err := c.GetResetMode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ALL ON", mode)

	port = &scriptedPort{replies: []string{"IN_MODE_4 0"}}
	c = newCarousel(port, false)
	mode, err = c.GetHeatMode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PRECISE", mode)

	// 表外的模式码视为应答畸形
	port = &scriptedPort{replies: []string{"IN_MODE_4 9"}}
	c = newCarousel(port, false)
	_, err = c.GetHeatMode(context.Background())
	var mre *labline.MalformedReplyError
	require.True(t, errors.As(err, &mre), "got %v", err)
}

func TestGetSensorType(t *testing.T) {
	port := &scriptedPort{replies: []string{"IN_MODE_1 0"}}
	c := newCarousel(port, false)
	got, err := c.GetSensorType(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "HOTPLATE (0)", got)

	port = &scriptedPort{replies: []string{"IN_MODE_1 1"}}
	c = newCarousel(port, false)
	got, err = c.GetSensorType(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "PROBE (1)", got)
}
