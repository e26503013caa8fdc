package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minimap_go/internal/config"
	"minimap_go/internal/models"
	"minimap_go/internal/overlay"
	"minimap_go/internal/telemetry"
)

func testScene(t *testing.T) *models.Scene {
	t.Helper()
	card := config.DefaultCard()
	card.Title = "Casa"
	card.CardHeight = 400
	card.Sensors = []config.SensorConfig{{ID: "s1", Name: "Sala & Cozinha", X: 1000, Y: 2000}}

	snap := telemetry.Snapshot{
		"sensor.s1_target_2_x":     {State: "500", Unit: "mm"},
		"sensor.s1_target_2_y":     {State: "0", Unit: "mm"},
		"number.s1_zone_1_begin_x": {State: "-500"},
		"number.s1_zone_1_begin_y": {State: "0"},
		"number.s1_zone_1_end_x":   {State: "500"},
		"number.s1_zone_1_end_y":   {State: "1000"},
	}
	return overlay.Compose(&card, snap, models.AllLayers())
}

func TestRenderDocument(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewSVGRenderer().Render(&buf, testScene(t)))
	out := buf.String()

	assert.Contains(t, out, `viewBox="0 0 12192 10973"`)
	assert.Contains(t, out, `preserveAspectRatio="xMidYMid meet"`)
	assert.Contains(t, out, `style="height: 400px"`)
	assert.Contains(t, out, `/local/floor-plan.png`)
	assert.Contains(t, out, "<title>Casa</title>")
	assert.Contains(t, out, "@keyframes pulse")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "</svg>"))
}

// rootElement retorna o elemento <svg ...> de abertura do documento
func rootElement(t *testing.T, out string) string {
	t.Helper()
	start := strings.Index(out, "<svg")
	require.GreaterOrEqual(t, start, 0)
	end := strings.Index(out[start:], ">")
	require.Greater(t, end, 0)
	return out[start : start+end+1]
}

func TestRenderRootElement(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewSVGRenderer().Render(&buf, testScene(t)))
	root := rootElement(t, buf.String())

	assert.Contains(t, root, `width="100%"`)
	assert.Contains(t, root, `height="100%"`)
	assert.Contains(t, root, `viewBox="0 0 12192 10973"`)
	assert.Contains(t, root, `preserveAspectRatio="xMidYMid meet"`)
	assert.Contains(t, root, `style="height: 400px"`)
	assert.Contains(t, root, `xmlns="http://www.w3.org/2000/svg"`)
	assert.Contains(t, root, `xmlns:xlink="http://www.w3.org/1999/xlink"`)
}

func TestRenderRootWithoutCardHeight(t *testing.T) {
	scene := testScene(t)
	scene.CardHeight = 0
	scene.Width, scene.Height = 1000.4, 799.6

	var buf bytes.Buffer
	require.NoError(t, NewSVGRenderer().Render(&buf, scene))
	root := rootElement(t, buf.String())

	assert.Contains(t, root, `viewBox="0 0 1000 800"`)
	assert.NotContains(t, root, "style=")
}

func TestRenderLayerOrder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewSVGRenderer().Render(&buf, testScene(t)))
	out := buf.String()

	last := -1
	for _, l := range models.Layers() {
		idx := strings.Index(out, `id="layer-`+l.String()+`"`)
		require.GreaterOrEqual(t, idx, 0, "layer %s missing", l)
		assert.Greater(t, idx, last, "layer %s out of order", l)
		last = idx
	}
	assert.Less(t, strings.Index(out, "<image"), strings.Index(out, `id="layer-coverage"`))
}

func TestRenderShapes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewSVGRenderer().Render(&buf, testScene(t)))
	out := buf.String()

	// zona: (-500,0),(−500,1000),(500,1000),(500,0) a partir de (1000,2000)
	assert.Contains(t, out, `points="500,2000 500,1000 1500,1000 1500,2000"`)
	assert.Contains(t, out, `stroke-dasharray="60,40"`)

	// alvo 2 em (1500,2000), com atraso de animação
	assert.Contains(t, out, `cx="1500" cy="2000" r="150"`)
	assert.Contains(t, out, `animation-delay: 0.3s`)
	assert.Contains(t, out, `class="target-dot"`)

	// nome escapado
	assert.Contains(t, out, "Sala &amp; Cozinha")
	assert.NotContains(t, out, "Sala & Cozinha")
}

func TestRenderHiddenLayerIsEmptyGroup(t *testing.T) {
	scene := testScene(t)
	scene.Layer(models.LayerCoverage).Shapes = nil

	var buf bytes.Buffer
	require.NoError(t, NewSVGRenderer().Render(&buf, scene))
	assert.NotContains(t, buf.String(), "stroke-dasharray")
	assert.Contains(t, buf.String(), `id="layer-coverage"`)
}

func TestRenderNilScene(t *testing.T) {
	assert.Error(t, NewSVGRenderer().Render(&bytes.Buffer{}, nil))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disco cheio") }

func TestRenderWriteError(t *testing.T) {
	err := NewSVGRenderer().Render(failingWriter{}, testScene(t))
	assert.EqualError(t, err, "disco cheio")
}

func TestStyleAttrs(t *testing.T) {
	attrs := styleAttrs(models.Style{Fill: `a"b`, StrokeWidth: 15, Opacity: 0.85})
	assert.Equal(t, []string{`fill="a&#34;b"`, `stroke-width="15"`, `opacity="0.85"`}, attrs)
}
