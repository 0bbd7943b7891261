package recorder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labforge/labdevice-server/internal/app"
	"github.com/labforge/labdevice-server/internal/device"
	"github.com/labforge/labdevice-server/internal/storage/models"
)

// fakeHotplate 预设读数的仪器替身
type fakeHotplate struct {
	device.Hotplate

	name      string
	status    string
	temps     map[int]float64
	speed     float64
	probeGone bool
}

func (f *fakeHotplate) Name() string                          { return f.name }
func (f *fakeHotplate) Simulation() bool                      { return false }
func (f *fakeHotplate) Status(ctx context.Context) string     { return f.status }
func (f *fakeHotplate) GetSpeed(ctx context.Context) (float64, error) { return f.speed, nil }

func (f *fakeHotplate) GetTemperature(ctx context.Context, sensor int) (float64, error) {
	if sensor == 1 && f.probeGone {
		return 0, errors.New("probe not connected")
	}
	v, ok := f.temps[sensor]
	if !ok {
		return 0, errors.New("invalid sensor")
	}
	return v, nil
}

// memRepo 内存仓库替身
type memRepo struct {
	saved   []models.Reading
	touched []string
}

func (m *memRepo) EnsureInstrument(ctx context.Context, name, driver string, sim bool) (*models.Instrument, error) {
	return &models.Instrument{Name: name, Driver: driver, Simulation: sim}, nil
}

func (m *memRepo) TouchInstrument(ctx context.Context, name string) error {
	m.touched = append(m.touched, name)
	return nil
}

func (m *memRepo) SaveReadings(ctx context.Context, readings []models.Reading) error {
	m.saved = append(m.saved, readings...)
	return nil
}

func (m *memRepo) RecentReadings(ctx context.Context, device, kind string, limit int) ([]models.Reading, error) {
	return m.saved, nil
}

func newHub(t *testing.T, devs ...device.Hotplate) *app.Hub {
	t.Helper()
	hub := app.NewHub()
	for _, d := range devs {
		require.NoError(t, hub.Add(app.NewController(d)))
	}
	return hub
}

func TestPollOne_SavesAllReadings(t *testing.T) {
	dev := &fakeHotplate{
		name:   "carousel-1",
		status: "REMOTE START",
		temps:  map[int]float64{0: 120.5, 1: 98.2},
		speed:  400,
	}
	repo := &memRepo{}
	hub := newHub(t, dev)
	r := New(hub, repo, nil, nil, time.Second, nil)

	ctrl, _ := hub.Get("carousel-1")
	r.pollOne(context.Background(), ctrl)

	require.Len(t, repo.saved, 3)
	kinds := map[string]int{}
	for _, reading := range repo.saved {
		kinds[reading.Kind]++
		assert.Equal(t, "carousel-1", reading.Device)
		assert.Equal(t, "REMOTE START", reading.Status)
	}
	assert.Equal(t, 2, kinds[models.KindTemperature])
	assert.Equal(t, 1, kinds[models.KindSpeed])
	assert.Equal(t, []string{"carousel-1"}, repo.touched)
}

func TestPollOne_ProbeFailureSkipsOnlyProbe(t *testing.T) {
	dev := &fakeHotplate{
		name:      "carousel-1",
		status:    "MANUAL",
		temps:     map[int]float64{0: 25.0},
		probeGone: true,
	}
	repo := &memRepo{}
	hub := newHub(t, dev)
	r := New(hub, repo, nil, nil, time.Second, nil)

	ctrl, _ := hub.Get("carousel-1")
	r.pollOne(context.Background(), ctrl)

	// 盘面温度 + 转速，外部探头被跳过
	require.Len(t, repo.saved, 2)
	for _, reading := range repo.saved {
		if reading.Kind == models.KindTemperature {
			assert.Equal(t, int32(0), reading.Sensor)
		}
	}
}

func TestPollOne_ErrorStatusSkipsReadings(t *testing.T) {
	dev := &fakeHotplate{name: "carousel-1", status: "ERROR"}
	repo := &memRepo{}
	hub := newHub(t, dev)
	r := New(hub, repo, nil, nil, time.Second, nil)

	ctrl, _ := hub.Get("carousel-1")
	r.pollOne(context.Background(), ctrl)

	assert.Empty(t, repo.saved, "unreachable device must not produce readings")
	assert.Empty(t, repo.touched)
}

func TestRun_StopsOnCancel(t *testing.T) {
	hub := newHub(t)
	r := New(hub, nil, nil, nil, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("recorder did not stop after cancel")
	}
}
