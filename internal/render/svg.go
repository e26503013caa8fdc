package render

import (
	"fmt"
	"html"
	"io"
	"math"
	"strconv"

	svg "github.com/ajstarks/svgo"

	"minimap_go/internal/models"
)

// Renderer desenha uma cena em uma superfície
type Renderer interface {
	Render(w io.Writer, scene *models.Scene) error
	ContentType() string
}

// Animação de pulso dos alvos
const targetCSS = `
@keyframes pulse {
  0%, 100% { opacity: 1; }
  50% { opacity: 0.4; }
}
.target-dot {
  animation: pulse 2s ease-in-out infinite;
}
`

// SVGRenderer gera SVG com viewBox nas coordenadas da planta.
// Coordenadas são arredondadas para inteiros (unidades da imagem).
type SVGRenderer struct{}

// NewSVGRenderer cria o renderizador SVG
func NewSVGRenderer() *SVGRenderer {
	return &SVGRenderer{}
}

// ContentType retorna o tipo MIME da saída
func (r *SVGRenderer) ContentType() string {
	return "image/svg+xml"
}

// Render escreve o documento SVG completo
func (r *SVGRenderer) Render(w io.Writer, scene *models.Scene) error {
	if scene == nil {
		return fmt.Errorf("cena vazia")
	}

	ew := &errWriter{w: w}
	canvas := svg.New(ew)

	width, height := round(scene.Width), round(scene.Height)
	canvas.Startraw(rootAttrs(scene, width, height)...)

	if scene.Title != "" {
		canvas.Title(scene.Title)
	}
	canvas.Style("text/css", targetCSS)

	// Planta de fundo
	canvas.Image(0, 0, width, height, html.EscapeString(scene.Image))

	for _, layer := range scene.Layers {
		canvas.Group(attr("id", "layer-"+layer.Layer.String()), attr("class", "layer"))
		for _, shape := range layer.Shapes {
			drawShape(canvas, shape)
		}
		canvas.Gend()
	}

	canvas.End()
	return ew.err
}

// rootAttrs monta os atributos do elemento <svg>: ocupa o card inteiro e
// mantém a proporção da planta
func rootAttrs(scene *models.Scene, width, height int) []string {
	attrs := []string{
		`width="100%"`,
		`height="100%"`,
		fmt.Sprintf(`viewBox="0 0 %d %d"`, width, height),
		`preserveAspectRatio="xMidYMid meet"`,
	}
	if scene.CardHeight > 0 {
		attrs = append(attrs, fmt.Sprintf(`style="height: %dpx"`, scene.CardHeight))
	}
	return attrs
}

func drawShape(canvas *svg.SVG, s models.Shape) {
	attrs := styleAttrs(s.Style)

	switch s.Kind {
	case models.ShapePolygon:
		xs := make([]int, len(s.Points))
		ys := make([]int, len(s.Points))
		for i, p := range s.Points {
			xs[i], ys[i] = round(p.X), round(p.Y)
		}
		canvas.Polygon(xs, ys, attrs...)
	case models.ShapeCircle:
		canvas.Circle(round(s.Center.X), round(s.Center.Y), round(s.Radius), attrs...)
	case models.ShapeText:
		canvas.Text(round(s.Center.X), round(s.Center.Y), s.Text, attrs...)
	}
}

// styleAttrs converte o estilo em atributos de apresentação
func styleAttrs(st models.Style) []string {
	var out []string
	add := func(name, value string) {
		if value != "" {
			out = append(out, attr(name, value))
		}
	}
	num := func(name string, v float64) {
		if v != 0 {
			out = append(out, attr(name, formatNumber(v)))
		}
	}

	add("fill", st.Fill)
	add("stroke", st.Stroke)
	num("stroke-width", st.StrokeWidth)
	add("stroke-dasharray", st.StrokeDashArray)
	num("opacity", st.Opacity)
	num("font-size", st.FontSize)
	add("font-weight", st.FontWeight)
	add("text-anchor", st.TextAnchor)
	add("dominant-baseline", st.DominantBaseline)
	add("paint-order", st.PaintOrder)
	add("pointer-events", st.PointerEvents)
	add("class", st.Class)
	if st.AnimationDelay > 0 {
		out = append(out, attr("style", "animation-delay: "+formatNumber(st.AnimationDelay)+"s"))
	}
	return out
}

func attr(name, value string) string {
	return name + `="` + html.EscapeString(value) + `"`
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func round(v float64) int {
	return int(math.Round(v))
}

// errWriter guarda o primeiro erro de escrita, já que o svgo não os retorna
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	if err != nil {
		e.err = err
	}
	return n, err
}
