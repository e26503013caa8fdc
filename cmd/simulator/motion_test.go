package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minimap_go/internal/config"
	"minimap_go/internal/mqtt"
	"minimap_go/internal/overlay"
	"minimap_go/internal/telemetry"
)

func TestStaticReadings(t *testing.T) {
	r := staticReadings("sala")

	assert.Equal(t, "600", r["number.sala_max_distance"].State)
	assert.Equal(t, "0", r["number.sala_installation_angle"].State)
	assert.Equal(t, "-1500", r["number.sala_zone_1_begin_x"].State)
	assert.Equal(t, "4000", r["number.sala_zone_1_end_y"].State)
}

func TestTargetReadingsInactiveSlots(t *testing.T) {
	r := targetReadings("sala", 1, 0)
	require.Len(t, r, telemetry.TargetSlots*2)

	// alvo 1 em t=0: (0, depth + 0.6 raio)
	assert.Equal(t, "0", r["sensor.sala_target_1_x"].State)
	assert.Equal(t, "3400", r["sensor.sala_target_1_y"].State)
	assert.Equal(t, telemetry.UnitMillimeter, r["sensor.sala_target_1_x"].Unit)

	assert.Equal(t, "0", r["sensor.sala_target_2_x"].State)
	assert.Equal(t, "0", r["sensor.sala_target_2_y"].State)
}

func TestSimulatedTargetsAreActive(t *testing.T) {
	card := config.DefaultCard()
	card.Sensors = []config.SensorConfig{{ID: "sala", X: 5000, Y: 5000}}

	store := telemetry.NewMemoryStore()
	readings := merge(staticReadings("sala"), targetReadings("sala", 3, 7*time.Second))
	for id, r := range readings {
		store.Set(id, r.State, r.Unit)
	}

	snap, err := store.Snapshot(context.Background(), overlay.EntityKeys(&card))
	require.NoError(t, err)
	assert.Len(t, overlay.ActiveTargets(snap, "sala"), 3)
}

func TestStateTopicRoundTrip(t *testing.T) {
	topic := stateTopic("presence", "sensor.sala_target_1_x")
	assert.Equal(t, "presence/sensor/sala_target_1_x/state", topic)

	entity, err := mqtt.ParseTopic("presence", topic)
	require.NoError(t, err)
	assert.Equal(t, "sensor.sala_target_1_x", entity)

	assert.Equal(t, "number/sala_max_distance/state", stateTopic("", "number.sala_max_distance"))
}
