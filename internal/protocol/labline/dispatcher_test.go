package labline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport 按脚本应答的传输层替身
type fakeTransport struct {
	writes  []string
	replies []string
	readErr error
}

func (f *fakeTransport) Open() error  { return nil }
func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) Write(p []byte) error {
	f.writes = append(f.writes, string(p))
	return nil
}

func (f *fakeTransport) ReadUntil(terminator string) (string, error) {
	if f.readErr != nil {
		return "", f.readErr
	}
	if len(f.replies) == 0 {
		return "", errors.New("unexpected read")
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func newTestDispatcher(conn Transport, sim bool) *Dispatcher {
	return NewDispatcher(conn, DispatcherConfig{
		Device:     "hotplate-1",
		Framing:    testFraming,
		Simulation: sim,
	})
}

func TestSend_RoundTrip(t *testing.T) {
	ft := &fakeTransport{replies: []string{"OUT_SP_1 150.0"}}
	d := newTestDispatcher(ft, false)

	cmd := Command{
		Name:  "OUT_SP_1",
		Arg:   KindInt,
		Check: &Bounds{Min: 20, Max: 300},
		Reply: &ReplySpec{Kind: KindFloat, Slice: From(9)},
	}
	v, err := d.Send(context.Background(), cmd, 150)
	require.NoError(t, err)
	assert.Equal(t, []string{"OUT_SP_1 150\r\n"}, ft.writes)
	assert.InDelta(t, 150.0, v.Real, 1e-9)
}

func TestSend_FireAndForget(t *testing.T) {
	ft := &fakeTransport{} // 无应答脚本：任何读取都会报错
	d := newTestDispatcher(ft, false)

	v, err := d.Send(context.Background(), Command{Name: "RESET"}, nil)
	require.NoError(t, err)
	assert.Equal(t, KindNone, v.Kind)
	assert.Equal(t, []string{"RESET\r\n"}, ft.writes)
}

func TestSend_InvalidArgumentNeverWritten(t *testing.T) {
	ft := &fakeTransport{}
	d := newTestDispatcher(ft, false)

	_, err := d.Send(context.Background(), setTemp, 301)
	var iae *InvalidArgumentError
	require.True(t, errors.As(err, &iae), "got %v", err)
	assert.Empty(t, ft.writes, "rejected command must not reach the device")
}

func TestSend_ReadFailureIsConnectionError(t *testing.T) {
	ft := &fakeTransport{readErr: errors.New("read timeout")}
	d := newTestDispatcher(ft, false)

	cmd := Command{Name: "STATUS", Reply: &ReplySpec{Kind: KindInt, Slice: From(7)}}
	_, err := d.Send(context.Background(), cmd, nil)
	require.True(t, IsConnectionError(err), "got %v", err)
}

func TestSend_SimulationSkipsTransport(t *testing.T) {
	ft := &fakeTransport{}
	d := newTestDispatcher(ft, true)

	v, err := d.Send(context.Background(), setTemp, 150)
	require.NoError(t, err)
	assert.Equal(t, KindNone, v.Kind)
	assert.Empty(t, ft.writes)
}
