package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"minimap_go/internal/models"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		name string
		spec *models.ColorSpec
		want models.Paint
		ok   bool
	}{
		{
			name: "short hex",
			spec: models.ColorString("#0af"),
			want: models.Paint{Fill: "rgba(0,170,255,0.25)", Stroke: "rgba(0,170,255,0.6)"},
			ok:   true,
		},
		{
			name: "long hex upper case",
			spec: models.ColorString("#03A9F4"),
			want: models.Paint{Fill: "rgba(3,169,244,0.25)", Stroke: "rgba(3,169,244,0.6)"},
			ok:   true,
		},
		{
			name: "hex with alpha digits ignores alpha",
			spec: models.ColorString("#ff000080"),
			want: models.Paint{Fill: "rgba(255,0,0,0.25)", Stroke: "rgba(255,0,0,0.6)"},
			ok:   true,
		},
		{
			name: "surrounding spaces",
			spec: models.ColorString("  #000000 "),
			want: models.Paint{Fill: "rgba(0,0,0,0.25)", Stroke: "rgba(0,0,0,0.6)"},
			ok:   true,
		},
		{
			name: "five digit hex is used verbatim",
			spec: models.ColorString("#12345"),
			want: models.Paint{Fill: "#12345", Stroke: "#12345"},
			ok:   true,
		},
		{
			name: "hex without hash is used verbatim",
			spec: models.ColorString("ff0000"),
			want: models.Paint{Fill: "ff0000", Stroke: "ff0000"},
			ok:   true,
		},
		{
			name: "named color",
			spec: models.ColorString("red"),
			want: models.Paint{Fill: "red", Stroke: "red"},
			ok:   true,
		},
		{
			name: "rgba string",
			spec: models.ColorString("rgba(1,2,3,0.5)"),
			want: models.Paint{Fill: "rgba(1,2,3,0.5)", Stroke: "rgba(1,2,3,0.5)"},
			ok:   true,
		},
		{
			name: "pair returned unchanged",
			spec: models.ColorPair("#ff0000", "blue"),
			want: models.Paint{Fill: "#ff0000", Stroke: "blue"},
			ok:   true,
		},
		{name: "pair missing stroke", spec: models.ColorPair("red", ""), ok: false},
		{name: "pair missing fill", spec: models.ColorPair("", "red"), ok: false},
		{name: "blank string", spec: models.ColorString("   "), ok: false},
		{name: "nil", spec: nil, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseColor(tt.spec, CoverageAlphas)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseColorAlphaFormatting(t *testing.T) {
	got, ok := ParseColor(models.ColorString("#ffffff"), ZoneAlphas)
	assert.True(t, ok)
	assert.Equal(t, models.Paint{Fill: "rgba(255,255,255,0.1)", Stroke: "rgba(255,255,255,0.4)"}, got)

	got, ok = ParseColor(models.ColorString("#ffffff"), MaskAlphas)
	assert.True(t, ok)
	assert.Equal(t, models.Paint{Fill: "rgba(255,255,255,0.12)", Stroke: "rgba(255,255,255,0.3)"}, got)
}

func TestResolveChain(t *testing.T) {
	palette := DefaultPalette()

	// sensor vence o global
	got := Resolve(CoverageAlphas, palette.Coverage, models.ColorString("red"), models.ColorString("blue"))
	assert.Equal(t, models.Paint{Fill: "red", Stroke: "red"}, got)

	// sensor ausente ou malformado cai para o global
	got = Resolve(CoverageAlphas, palette.Coverage, nil, models.ColorString("blue"))
	assert.Equal(t, models.Paint{Fill: "blue", Stroke: "blue"}, got)

	got = Resolve(CoverageAlphas, palette.Coverage, models.ColorPair("red", ""), models.ColorString("blue"))
	assert.Equal(t, models.Paint{Fill: "blue", Stroke: "blue"}, got)

	// nada configurado usa o padrão
	got = Resolve(CoverageAlphas, palette.Coverage, nil, models.ColorString(""))
	assert.Equal(t, models.Paint{Fill: "rgba(168,216,234,0.25)", Stroke: "rgba(168,216,234,0.6)"}, got)
}

func TestPaletteZones(t *testing.T) {
	p := DefaultPalette()
	assert.Equal(t, "rgba(20,200,0,0.10)", p.Zone(1).Fill)
	assert.Equal(t, "rgba(255,0,0,0.15)", p.Zone(4).Fill)
	assert.Equal(t, "rgba(255,0,0,0.4)", p.Zone(4).Stroke)
	assert.Equal(t, p.Zone(1), p.Zone(9))
}

func TestAt(t *testing.T) {
	list := []*models.ColorSpec{models.ColorString("a"), nil}
	assert.Equal(t, "a", At(list, 0).Value)
	assert.Nil(t, At(list, 1))
	assert.Nil(t, At(list, 2))
	assert.Nil(t, At(nil, 0))
	assert.Nil(t, At(list, -1))
}
