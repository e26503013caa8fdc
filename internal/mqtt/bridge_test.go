package mqtt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minimap_go/internal/config"
	"minimap_go/internal/telemetry"
)

func TestParseTopic(t *testing.T) {
	tests := []struct {
		base, topic string
		want        string
		ok          bool
	}{
		{"presence", "presence/sensor/living_target_1_x/state", "sensor.living_target_1_x", true},
		{"presence", "presence/number/living_zone_1_begin_x/state", "number.living_zone_1_begin_x", true},
		{"", "sensor/living_target_1_x/state", "sensor.living_target_1_x", true},
		{"presence", "other/sensor/x/state", "", false},
		{"presence", "presence/light/x/state", "", false},
		{"presence", "presence/sensor/x/command", "", false},
		{"presence", "presence/sensor//state", "", false},
		{"presence", "presence/sensor/x/y/state", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			got, err := ParseTopic(tt.base, tt.topic)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    telemetry.Reading
		wantErr bool
	}{
		{"plain", "123.4", telemetry.Reading{State: "123.4"}, false},
		{"plain with spaces", "  -5 \n", telemetry.Reading{State: "-5"}, false},
		{"empty", "", telemetry.Reading{State: ""}, false},
		{"json string", `{"state": "10", "unit_of_measurement": "in"}`, telemetry.Reading{State: "10", Unit: "in"}, false},
		{"json number", `{"state": 2.5, "unit_of_measurement": "mm"}`, telemetry.Reading{State: "2.5", Unit: "mm"}, false},
		{"json without unit", `{"state": "unavailable"}`, telemetry.Reading{State: "unavailable"}, false},
		{"broken json", `{"state": `, telemetry.Reading{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePayload([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIngestWritesAndNotifies(t *testing.T) {
	store := telemetry.NewMemoryStore()
	notified := 0
	b := NewBridge(config.MQTTConfig{BaseTopic: "presence"}, store, func() { notified++ })

	err := b.ingest(context.Background(), "presence/sensor/s1_target_1_x/state", []byte(`{"state": 120, "unit_of_measurement": "mm"}`))
	require.NoError(t, err)
	assert.Equal(t, 1, notified)

	snap, err := store.Snapshot(context.Background(), []string{"sensor.s1_target_1_x"})
	require.NoError(t, err)
	assert.Equal(t, telemetry.Reading{State: "120", Unit: "mm"}, snap["sensor.s1_target_1_x"])

	err = b.ingest(context.Background(), "presence/switch/x/state", []byte("on"))
	assert.Error(t, err)
	assert.Equal(t, 1, notified)

	received, rejected := b.Stats()
	assert.Equal(t, int64(1), received)
	assert.Equal(t, int64(1), rejected)
}

func TestIngestPlainPayloadKeepsUnit(t *testing.T) {
	store := telemetry.NewMemoryStore()
	b := NewBridge(config.MQTTConfig{BaseTopic: "presence"}, store, nil)
	ctx := context.Background()

	require.NoError(t, b.ingest(ctx, "presence/sensor/s1_target_1_x/state", []byte(`{"state": "10", "unit_of_measurement": "in"}`)))
	require.NoError(t, b.ingest(ctx, "presence/sensor/s1_target_1_x/state", []byte("12")))

	snap, err := store.Snapshot(ctx, []string{"sensor.s1_target_1_x"})
	require.NoError(t, err)
	assert.Equal(t, telemetry.Reading{State: "12", Unit: telemetry.UnitInch}, snap["sensor.s1_target_1_x"])
}

type failingWriter struct{}

func (failingWriter) SetState(context.Context, string, telemetry.Reading) error {
	return errors.New("store indisponível")
}

func TestIngestWriterError(t *testing.T) {
	notified := false
	b := NewBridge(config.MQTTConfig{BaseTopic: "presence"}, failingWriter{}, func() { notified = true })

	err := b.ingest(context.Background(), "presence/number/s1_max_distance/state", []byte("600"))
	assert.Error(t, err)
	assert.False(t, notified)
}

func TestTopicFilter(t *testing.T) {
	b := NewBridge(config.MQTTConfig{BaseTopic: "casa"}, telemetry.NewMemoryStore(), nil)
	assert.Equal(t, "casa/+/+/state", b.TopicFilter())
	assert.False(t, b.IsRunning())
}
