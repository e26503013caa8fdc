package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minimap_go/internal/config"
	"minimap_go/internal/models"
	"minimap_go/internal/telemetry"
)

func TestEntityKey(t *testing.T) {
	assert.Equal(t, "minimap:sensor.s1_target_1_x", entityKey("minimap", "sensor.s1_target_1_x"))
	assert.Equal(t, "sensor.s1_target_1_x", entityKey("", "sensor.s1_target_1_x"))
}

func TestDecodeReading(t *testing.T) {
	r, ok := decodeReading(map[string]string{"state": "12.5", "unit_of_measurement": "in"})
	require.True(t, ok)
	assert.Equal(t, telemetry.Reading{State: "12.5", Unit: "in"}, r)

	r, ok = decodeReading(map[string]string{"state": ""})
	require.True(t, ok, "empty state is present but unavailable")
	assert.Equal(t, "", r.State)

	_, ok = decodeReading(map[string]string{})
	assert.False(t, ok)
}

func TestEncodeReading(t *testing.T) {
	fields := encodeReading(telemetry.Reading{State: "3", Unit: "mm"})
	assert.Equal(t, map[string]interface{}{"state": "3", "unit_of_measurement": "mm"}, fields)

	// estado sem unidade não apaga a unidade já gravada
	fields = encodeReading(telemetry.Reading{State: "4"})
	assert.Equal(t, map[string]interface{}{"state": "4"}, fields)
}

func TestDisabledService(t *testing.T) {
	svc, err := NewService(config.RedisConfig{Enabled: false, Prefix: "minimap"})
	require.NoError(t, err)
	defer svc.Shutdown()

	assert.False(t, svc.IsConnected())

	_, err = svc.Snapshot(context.Background(), []string{"sensor.s1_target_1_x"})
	assert.ErrorIs(t, err, ErrDisconnected)

	err = svc.SetState(context.Background(), "sensor.s1_target_1_x", telemetry.Reading{State: "1"})
	assert.ErrorIs(t, err, ErrDisconnected)

	assert.NoError(t, svc.SetStates(context.Background(), nil))
	assert.NoError(t, svc.WriteStatus(models.ServiceStatus{Status: "ok"}))
	assert.NoError(t, svc.WriteOccupancy(&models.Scene{}))

	// sem cliente, Subscribe não faz nada
	svc.Subscribe(context.Background(), func() {})
}
