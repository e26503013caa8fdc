package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
)

// Layer identifica uma camada de pintura do overlay
type Layer int

// Ordem de pintura, de baixo para cima. A ordem é requisito de oclusão.
const (
	LayerCoverage Layer = iota
	LayerZones
	LayerMasks
	LayerTargets
	LayerSensors
	LayerLabels

	LayerCount
)

var layerNames = [LayerCount]string{"coverage", "zones", "masks", "targets", "sensors", "labels"}

// Rótulos dos botões de alternância, na ordem exibida pelo card
var layerLabels = [LayerCount]string{"Coverage", "Zones", "Masks", "Targets", "Sensors", "Labels"}

// Chaves de configuração "show_*" de cada camada
var layerConfigKeys = [LayerCount]string{
	"show_coverage",
	"show_zones",
	"show_occupancy_masks",
	"show_targets",
	"show_sensor_icons",
	"show_labels",
}

// ToggleOrder é a ordem dos botões de alternância no card
var ToggleOrder = []Layer{LayerTargets, LayerCoverage, LayerZones, LayerMasks, LayerSensors, LayerLabels}

// Layers retorna todas as camadas em ordem de pintura
func Layers() []Layer {
	out := make([]Layer, 0, LayerCount)
	for l := Layer(0); l < LayerCount; l++ {
		out = append(out, l)
	}
	return out
}

func (l Layer) valid() bool {
	return l >= 0 && l < LayerCount
}

// String retorna o nome curto da camada ("coverage", "zones", ...)
func (l Layer) String() string {
	if !l.valid() {
		return fmt.Sprintf("layer(%d)", int(l))
	}
	return layerNames[l]
}

// Label retorna o rótulo exibido no botão de alternância
func (l Layer) Label() string {
	if !l.valid() {
		return l.String()
	}
	return layerLabels[l]
}

// ConfigKey retorna a chave "show_*" correspondente
func (l Layer) ConfigKey() string {
	if !l.valid() {
		return ""
	}
	return layerConfigKeys[l]
}

// ParseLayer aceita o nome curto ou a chave "show_*" da camada
func ParseLayer(name string) (Layer, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for l := Layer(0); l < LayerCount; l++ {
		if name == layerNames[l] || name == layerConfigKeys[l] {
			return l, nil
		}
	}
	return 0, fmt.Errorf("camada desconhecida: %q", name)
}

// MarshalText implementa encoding.TextMarshaler
func (l Layer) MarshalText() ([]byte, error) {
	if !l.valid() {
		return nil, fmt.Errorf("camada inválida: %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implementa encoding.TextUnmarshaler
func (l *Layer) UnmarshalText(text []byte) error {
	parsed, err := ParseLayer(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// LayerSet guarda a visibilidade de cada camada
type LayerSet [LayerCount]bool

// AllLayers retorna um conjunto com todas as camadas visíveis
func AllLayers() LayerSet {
	var s LayerSet
	for i := range s {
		s[i] = true
	}
	return s
}

// Visible informa se a camada está visível
func (s LayerSet) Visible(l Layer) bool {
	return l.valid() && s[l]
}

// Toggle inverte a visibilidade da camada e retorna o novo valor
func (s *LayerSet) Toggle(l Layer) bool {
	if !l.valid() {
		return false
	}
	s[l] = !s[l]
	return s[l]
}

// MarshalJSON serializa como {"coverage": true, ...}
func (s LayerSet) MarshalJSON() ([]byte, error) {
	m := make(map[string]bool, LayerCount)
	for l := Layer(0); l < LayerCount; l++ {
		m[l.String()] = s[l]
	}
	return json.Marshal(m)
}

// ShapeKind é o tipo de primitiva gráfica
type ShapeKind string

const (
	ShapePolygon ShapeKind = "polygon"
	ShapeCircle  ShapeKind = "circle"
	ShapeText    ShapeKind = "text"
)

// Paint é um par de cores já resolvido
type Paint struct {
	Fill   string `json:"fill"`
	Stroke string `json:"stroke"`
}

// Style contém os atributos de apresentação de uma forma
type Style struct {
	Fill             string  `json:"fill,omitempty"`
	Stroke           string  `json:"stroke,omitempty"`
	StrokeWidth      float64 `json:"strokeWidth,omitempty"`
	StrokeDashArray  string  `json:"strokeDashArray,omitempty"`
	Opacity          float64 `json:"opacity,omitempty"` // 0 = não definido
	FontSize         float64 `json:"fontSize,omitempty"`
	FontWeight       string  `json:"fontWeight,omitempty"`
	TextAnchor       string  `json:"textAnchor,omitempty"`
	DominantBaseline string  `json:"dominantBaseline,omitempty"`
	PaintOrder       string  `json:"paintOrder,omitempty"`
	PointerEvents    string  `json:"pointerEvents,omitempty"`
	Class            string  `json:"class,omitempty"`
	AnimationDelay   float64 `json:"animationDelay,omitempty"` // segundos
}

// Shape é a unidade de saída do motor: pontos em coordenadas da planta
type Shape struct {
	Kind     ShapeKind `json:"kind"`
	Layer    Layer     `json:"layer"`
	SensorID string    `json:"sensorId"`
	Points   []r2.Vec  `json:"points,omitempty"` // polígonos
	Center   r2.Vec    `json:"center"`           // círculos e textos
	Radius   float64   `json:"radius,omitempty"`
	Text     string    `json:"text,omitempty"`
	Style    Style     `json:"style"`
}

// LayerShapes agrupa as formas de uma camada
type LayerShapes struct {
	Layer   Layer   `json:"layer"`
	Label   string  `json:"label"`
	Visible bool    `json:"visible"`
	Shapes  []Shape `json:"shapes"`
}

// SensorSummary resume o estado de um sensor na última renderização
type SensorSummary struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	X                 float64 `json:"x"`
	Y                 float64 `json:"y"`
	ActiveTargets     int     `json:"activeTargets"`
	InstallationAngle float64 `json:"installationAngle"`
	MaxDistance       float64 `json:"maxDistance"`
}

// Scene é o resultado imutável de uma passada de renderização
type Scene struct {
	Title       string          `json:"title,omitempty"`
	Image       string          `json:"image"`
	Width       float64         `json:"width"`
	Height      float64         `json:"height"`
	CardHeight  int             `json:"cardHeight,omitempty"`
	Layers      []LayerShapes   `json:"layers"`
	Sensors     []SensorSummary `json:"sensors"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	GeneratedAt time.Time       `json:"generatedAt"`
}

// Layer retorna o grupo de formas da camada, ou nil
func (s *Scene) Layer(l Layer) *LayerShapes {
	for i := range s.Layers {
		if s.Layers[i].Layer == l {
			return &s.Layers[i]
		}
	}
	return nil
}

// ShapeCount retorna o total de formas em todas as camadas
func (s *Scene) ShapeCount() int {
	n := 0
	for _, l := range s.Layers {
		n += len(l.Shapes)
	}
	return n
}
