package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.5", 12.5, true},
		{" -300 ", -300, true},
		{"0", 0, true},
		{"0.0001", 0.0001, true},
		{"", 0, false},
		{"   ", 0, false},
		{"unavailable", 0, false},
		{"unknown", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"-Inf", 0, false},
		{"12abc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseNumber(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-12)
			}
		})
	}
}

func TestSnapshotNumberAndUnit(t *testing.T) {
	snap := Snapshot{
		"sensor.s1_target_1_x": {State: "10", Unit: UnitInch},
		"sensor.s1_target_1_y": {State: "bad"},
	}

	v, ok := snap.Number("sensor.s1_target_1_x")
	require.True(t, ok)
	assert.Equal(t, 10.0, v)
	assert.Equal(t, UnitInch, snap.Unit("sensor.s1_target_1_x"))

	_, ok = snap.Number("sensor.s1_target_1_y")
	assert.False(t, ok)

	_, ok = snap.Number("sensor.s1_target_2_x")
	assert.False(t, ok)
	assert.Empty(t, snap.Unit("sensor.s1_target_2_x"))
}

func TestEntityKeys(t *testing.T) {
	assert.Equal(t, "sensor.kitchen_target_2_y", TargetY("kitchen", 2))
	assert.Equal(t, "number.kitchen_installation_angle", InstallationAngle("kitchen"))
	assert.Equal(t, "number.kitchen_max_distance", MaxDistance("kitchen"))

	z := Zone("kitchen", 3)
	assert.Equal(t, []string{
		"number.kitchen_zone_3_begin_x",
		"number.kitchen_zone_3_begin_y",
		"number.kitchen_zone_3_end_x",
		"number.kitchen_zone_3_end_y",
	}, z.Keys())

	assert.Equal(t, "number.kitchen_occupancy_mask_1_end_x", OccupancyMask("kitchen").EndX)
}

func TestSensorKeysOrder(t *testing.T) {
	keys := SensorKeys("s1")
	require.Len(t, keys, 28)

	assert.Equal(t, "sensor.s1_target_1_x", keys[0])
	assert.Equal(t, "sensor.s1_target_3_y", keys[5])
	assert.Equal(t, "number.s1_installation_angle", keys[6])
	assert.Equal(t, "number.s1_max_distance", keys[7])
	assert.Equal(t, "number.s1_zone_1_begin_x", keys[8])
	assert.Equal(t, "number.s1_occupancy_mask_1_end_y", keys[27])
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	var changed []string
	store.OnChange(func(id string) { changed = append(changed, id) })

	store.Set("sensor.s1_target_1_x", "100", UnitMillimeter)
	store.Set("sensor.s1_target_1_y", "200", UnitMillimeter)
	assert.Equal(t, []string{"sensor.s1_target_1_x", "sensor.s1_target_1_y"}, changed)
	assert.Equal(t, 2, store.Len())

	snap, err := store.Snapshot(context.Background(), []string{"sensor.s1_target_1_x", "sensor.s1_missing"})
	require.NoError(t, err)
	assert.Len(t, snap, 1)
	assert.Equal(t, Reading{State: "100", Unit: UnitMillimeter}, snap["sensor.s1_target_1_x"])

	store.Delete("sensor.s1_target_1_x")
	snap, err = store.Snapshot(context.Background(), []string{"sensor.s1_target_1_x"})
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestMemoryStoreKeepsUnit(t *testing.T) {
	store := NewMemoryStore()
	store.Set("sensor.s1_target_1_x", "10", UnitInch)
	store.Set("sensor.s1_target_1_x", "12", "")

	snap, err := store.Snapshot(context.Background(), []string{"sensor.s1_target_1_x"})
	require.NoError(t, err)
	assert.Equal(t, Reading{State: "12", Unit: UnitInch}, snap["sensor.s1_target_1_x"])

	store.Set("sensor.s1_target_1_x", "300", UnitMillimeter)
	snap, err = store.Snapshot(context.Background(), []string{"sensor.s1_target_1_x"})
	require.NoError(t, err)
	assert.Equal(t, UnitMillimeter, snap.Unit("sensor.s1_target_1_x"))
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Snapshot(ctx, []string{"x"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.SetState(ctx, "x", Reading{State: "1"}), context.Canceled)
}
