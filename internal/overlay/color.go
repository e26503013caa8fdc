package overlay

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"minimap_go/internal/models"
)

// #rgb, #rrggbb ou #rrggbbaa (o alfa do hex é ignorado)
var hexPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// Alphas define a opacidade aplicada ao converter uma cor hex
type Alphas struct {
	Fill   float64
	Stroke float64
}

// Opacidades por tipo de forma
var (
	CoverageAlphas = Alphas{Fill: 0.25, Stroke: 0.6}
	ZoneAlphas     = Alphas{Fill: 0.10, Stroke: 0.4}
	MaskAlphas     = Alphas{Fill: 0.12, Stroke: 0.3}
)

// Palette contém as cores usadas quando nenhuma configuração se aplica
type Palette struct {
	Sensor   string
	Coverage models.Paint
	Mask     models.Paint
	Zones    [4]models.Paint
}

// DefaultPalette retorna as cores padrão do overlay
func DefaultPalette() Palette {
	return Palette{
		Sensor:   "#4CAF50",
		Coverage: models.Paint{Fill: "rgba(168,216,234,0.25)", Stroke: "rgba(168,216,234,0.6)"},
		Mask:     models.Paint{Fill: "rgba(20,20,20,0.12)", Stroke: "rgba(20,20,20,0.3)"},
		Zones: [4]models.Paint{
			{Fill: "rgba(20,200,0,0.10)", Stroke: "rgba(20,200,0,0.4)"},
			{Fill: "rgba(200,0,255,0.10)", Stroke: "rgba(200,0,255,0.4)"},
			{Fill: "rgba(200,120,55,0.10)", Stroke: "rgba(200,120,55,0.4)"},
			{Fill: "rgba(255,0,0,0.15)", Stroke: "rgba(255,0,0,0.4)"},
		},
	}
}

// Zone retorna a cor padrão da zona z (1..4)
func (p Palette) Zone(z int) models.Paint {
	if z < 1 || z > len(p.Zones) {
		return p.Zones[0]
	}
	return p.Zones[z-1]
}

// ParseColor converte uma especificação em um par fill/stroke.
// Retorna false quando a especificação está ausente, vazia ou malformada.
func ParseColor(spec *models.ColorSpec, a Alphas) (models.Paint, bool) {
	if spec == nil {
		return models.Paint{}, false
	}

	if spec.Pair != nil {
		// Par incompleto é tratado como ausente
		if spec.Pair.Fill == "" || spec.Pair.Stroke == "" {
			return models.Paint{}, false
		}
		return *spec.Pair, true
	}

	s := strings.TrimSpace(spec.Value)
	if s == "" {
		return models.Paint{}, false
	}

	if hexPattern.MatchString(s) {
		if len(s) == 9 {
			s = s[:7]
		}
		c, err := colorful.Hex(strings.ToLower(s))
		if err == nil {
			r, g, b := c.RGB255()
			return models.Paint{
				Fill:   rgba(r, g, b, a.Fill),
				Stroke: rgba(r, g, b, a.Stroke),
			}, true
		}
	}

	// rgb(), rgba(), nomes e demais strings são usados literalmente
	return models.Paint{Fill: s, Stroke: s}, true
}

// Resolve percorre a cadeia (sensor, global, ...) e usa o fallback no final
func Resolve(a Alphas, fallback models.Paint, chain ...*models.ColorSpec) models.Paint {
	for _, spec := range chain {
		if p, ok := ParseColor(spec, a); ok {
			return p
		}
	}
	return fallback
}

// At retorna o elemento i da lista de cores, ou nil
func At(list []*models.ColorSpec, i int) *models.ColorSpec {
	if i < 0 || i >= len(list) {
		return nil
	}
	return list[i]
}

func rgba(r, g, b uint8, alpha float64) string {
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", r, g, b, strconv.FormatFloat(alpha, 'g', -1, 64))
}
