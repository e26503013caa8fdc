package minimap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minimap_go/internal/config"
	"minimap_go/internal/metrics"
	"minimap_go/internal/models"
	"minimap_go/internal/telemetry"
)

func testCard(refresh float64) *config.CardConfig {
	card := config.DefaultCard()
	card.RefreshInterval = refresh
	card.Sensors = []config.SensorConfig{{ID: "s1", X: 1000, Y: 2000}}
	return &card
}

// sceneSink coleta as cenas publicadas pelo serviço
type sceneSink struct {
	mu     sync.Mutex
	scenes []*models.Scene
}

func (k *sceneSink) handle(scene *models.Scene) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.scenes = append(k.scenes, scene)
}

func (k *sceneSink) count() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.scenes)
}

func (k *sceneSink) last() *models.Scene {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.scenes) == 0 {
		return nil
	}
	return k.scenes[len(k.scenes)-1]
}

func startService(t *testing.T, card *config.CardConfig, source telemetry.Source) (*Service, *sceneSink) {
	t.Helper()
	svc := NewService(card, source, metrics.NewRecorder())
	sink := &sceneSink{}
	svc.RegisterSceneHandler(sink.handle)
	require.NoError(t, svc.Start())
	t.Cleanup(svc.Stop)
	return svc, sink
}

func TestServiceRendersOnStart(t *testing.T) {
	store := telemetry.NewMemoryStore()
	store.Set(telemetry.TargetX("s1", 1), "500", "mm")
	store.Set(telemetry.TargetY("s1", 1), "0", "mm")

	svc, sink := startService(t, testCard(0), store)

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
	scene := svc.GetScene()
	require.NotNil(t, scene)
	assert.NotEmpty(t, scene.Fingerprint)
	assert.False(t, scene.GeneratedAt.IsZero())
	assert.Len(t, scene.Layer(models.LayerTargets).Shapes, 3)
	assert.Equal(t, "ok", svc.GetStatus().Status)
	assert.True(t, svc.IsRunning())
}

func TestServiceGateSkipsUnchangedReadings(t *testing.T) {
	store := telemetry.NewMemoryStore()
	svc, sink := startService(t, testCard(0), store)
	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)

	// nada mudou: nenhuma renderização
	svc.Notify()
	require.Eventually(t, func() bool { return svc.GetStatus().Skipped == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, sink.count())

	// uma mudança: exatamente uma renderização
	store.Set(telemetry.TargetX("s1", 2), "100", "mm")
	store.Set(telemetry.TargetY("s1", 2), "100", "mm")
	svc.Notify()
	require.Eventually(t, func() bool { return sink.count() == 2 }, time.Second, 5*time.Millisecond)

	svc.Notify()
	require.Eventually(t, func() bool { return svc.GetStatus().Skipped == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, sink.count())
	assert.Equal(t, int64(2), svc.GetStatus().Renders)
}

func TestServiceTickForcesRender(t *testing.T) {
	store := telemetry.NewMemoryStore()
	card := testCard(0.02)
	_, sink := startService(t, card, store)

	// sem mudanças, o tick renderiza mesmo assim
	require.Eventually(t, func() bool { return sink.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
}

func TestServiceToggleLayer(t *testing.T) {
	store := telemetry.NewMemoryStore()
	svc, sink := startService(t, testCard(0), store)
	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
	require.NotEmpty(t, sink.last().Layer(models.LayerCoverage).Shapes)

	var announced []models.LayerSet
	var announcedMu sync.Mutex
	svc.RegisterLayersHandler(func(l models.LayerSet) {
		announcedMu.Lock()
		announced = append(announced, l)
		announcedMu.Unlock()
	})

	vis, err := svc.ToggleLayer(context.Background(), models.LayerCoverage)
	require.NoError(t, err)
	assert.False(t, vis.Visible(models.LayerCoverage))
	assert.Equal(t, vis, svc.Layers())

	// toggle força renderização mesmo com leituras iguais
	require.Equal(t, 2, sink.count())
	coverage := sink.last().Layer(models.LayerCoverage)
	assert.False(t, coverage.Visible)
	assert.Empty(t, coverage.Shapes)

	vis, err = svc.ToggleLayer(context.Background(), models.LayerCoverage)
	require.NoError(t, err)
	assert.True(t, vis.Visible(models.LayerCoverage))
	assert.Equal(t, 3, sink.count())

	announcedMu.Lock()
	defer announcedMu.Unlock()
	require.Len(t, announced, 2)
	assert.False(t, announced[0].Visible(models.LayerCoverage))
	assert.True(t, announced[1].Visible(models.LayerCoverage))
}

func TestServiceToggleInvalidLayer(t *testing.T) {
	svc, _ := startService(t, testCard(0), telemetry.NewMemoryStore())
	_, err := svc.ToggleLayer(context.Background(), models.Layer(42))
	assert.Error(t, err)
}

func TestServiceToggleWhenStopped(t *testing.T) {
	svc := NewService(testCard(0), telemetry.NewMemoryStore(), nil)
	_, err := svc.ToggleLayer(context.Background(), models.LayerZones)
	assert.ErrorIs(t, err, ErrNotRunning)
}

type flakySource struct {
	mu    sync.Mutex
	fail  bool
	inner telemetry.Source
}

func (f *flakySource) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *flakySource) Snapshot(ctx context.Context, keys []string) (telemetry.Snapshot, error) {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return nil, errors.New("conexão recusada")
	}
	return f.inner.Snapshot(ctx, keys)
}

func TestServiceSourceFailureKeepsLastScene(t *testing.T) {
	source := &flakySource{inner: telemetry.NewMemoryStore()}
	svc := NewService(testCard(0), source, nil)

	var statuses []string
	var mu sync.Mutex
	svc.RegisterStatusHandler(func(st models.ServiceStatus) {
		mu.Lock()
		statuses = append(statuses, st.Status)
		mu.Unlock()
	})
	sink := &sceneSink{}
	svc.RegisterSceneHandler(sink.handle)
	require.NoError(t, svc.Start())
	defer svc.Stop()

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
	first := svc.GetScene()

	source.setFail(true)
	svc.Notify()
	require.Eventually(t, func() bool { return svc.GetStatus().Status == "degraded" }, time.Second, 5*time.Millisecond)
	assert.Same(t, first, svc.GetScene())
	assert.Equal(t, "conexão recusada", svc.GetStatus().LastError)

	// recuperação renderiza de novo, mesmo com as mesmas leituras
	source.setFail(false)
	svc.Notify()
	require.Eventually(t, func() bool { return sink.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "ok", svc.GetStatus().Status)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"ok", "degraded", "ok"}, statuses)
}

func TestServiceStopIsIdempotent(t *testing.T) {
	svc := NewService(testCard(0), telemetry.NewMemoryStore(), nil)
	require.NoError(t, svc.Start())
	require.NoError(t, svc.Start())
	svc.Stop()
	svc.Stop()
	assert.False(t, svc.IsRunning())
}
