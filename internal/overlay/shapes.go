package overlay

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/spatial/r2"

	"minimap_go/internal/models"
	"minimap_go/internal/telemetry"
)

const (
	inchToMM = 25.4

	// Alcance padrão (mm) quando max_distance não está disponível
	DefaultMaxDistance = 7500

	// Fator entre o max_distance do sensor e milímetros
	maxDistanceFactor = 10

	markerSize  = 200
	labelOffset = 320
)

// Passos do arco de cobertura, em mm, para o alcance padrão
var coverageSteps = [...]float64{5500, 4500, 4000, 3000, 2000, 1000, 0, -1000, -2000, -3000, -4000, -4500, -5500}

// Target é um alvo ativo, já convertido para mm no referencial do sensor
type Target struct {
	Slot  int
	Local r2.Vec
}

// ActiveTargets extrai os alvos ativos do sensor.
// Slots sem as duas coordenadas, ou em (0,0) exato, são ignorados.
func ActiveTargets(snap telemetry.Snapshot, sensorID string) []Target {
	fallbackUnit := snap.Unit(telemetry.TargetX(sensorID, 1))

	var targets []Target
	for t := 1; t <= telemetry.TargetSlots; t++ {
		xKey := telemetry.TargetX(sensorID, t)
		x, okX := snap.Number(xKey)
		y, okY := snap.Number(telemetry.TargetY(sensorID, t))
		if !okX || !okY {
			continue
		}

		// (0,0) é o marcador de alvo inativo
		if x == 0 && y == 0 {
			continue
		}

		unit := snap.Unit(xKey)
		if unit == "" {
			unit = fallbackUnit
		}
		if unit == telemetry.UnitInch {
			x *= inchToMM
			y *= inchToMM
		}

		targets = append(targets, Target{Slot: t, Local: r2.Vec{X: x, Y: y}})
	}
	return targets
}

// TargetMarkers gera brilho, ponto e número de cada alvo
func TargetMarkers(sensorID string, tr Transformer, targets []Target, color string, size float64) []models.Shape {
	shapes := make([]models.Shape, 0, len(targets)*3)
	for _, t := range targets {
		p := tr.TransformData(t.Local.X, t.Local.Y)
		delay := float64(t.Slot-1) * 0.3

		shapes = append(shapes,
			models.Shape{
				Kind:     models.ShapeCircle,
				Layer:    models.LayerTargets,
				SensorID: sensorID,
				Center:   p,
				Radius:   size * 1.5,
				Style: models.Style{
					Fill:           color,
					Opacity:        0.2,
					Class:          "target-dot",
					AnimationDelay: delay,
				},
			},
			models.Shape{
				Kind:     models.ShapeCircle,
				Layer:    models.LayerTargets,
				SensorID: sensorID,
				Center:   p,
				Radius:   size,
				Style: models.Style{
					Fill:           color,
					Stroke:         "white",
					StrokeWidth:    20,
					Opacity:        0.9,
					Class:          "target-dot",
					AnimationDelay: delay,
				},
			},
			models.Shape{
				Kind:     models.ShapeText,
				Layer:    models.LayerTargets,
				SensorID: sensorID,
				Center:   p,
				Text:     strconv.Itoa(t.Slot),
				Style: models.Style{
					Fill:             "white",
					FontSize:         size * 1.2,
					FontWeight:       "bold",
					TextAnchor:       "middle",
					DominantBaseline: "central",
					PointerEvents:    "none",
				},
			},
		)
	}
	return shapes
}

// RectangleCorners lê os dois cantos opostos e retorna o polígono na planta.
// Qualquer valor indisponível suprime o retângulo.
func RectangleCorners(tr Transformer, snap telemetry.Snapshot, rect telemetry.Rect) ([]r2.Vec, bool) {
	bx, ok1 := snap.Number(rect.BeginX)
	by, ok2 := snap.Number(rect.BeginY)
	ex, ok3 := snap.Number(rect.EndX)
	ey, ok4 := snap.Number(rect.EndY)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, false
	}

	return []r2.Vec{
		tr.TransformData(bx, by),
		tr.TransformData(bx, ey),
		tr.TransformData(ex, ey),
		tr.TransformData(ex, by),
	}, true
}

// Rectangle monta o polígono de uma zona ou máscara
func Rectangle(sensorID string, layer models.Layer, points []r2.Vec, paint models.Paint) models.Shape {
	return models.Shape{
		Kind:     models.ShapePolygon,
		Layer:    layer,
		SensorID: sensorID,
		Points:   points,
		Style: models.Style{
			Fill:        paint.Fill,
			Stroke:      paint.Stroke,
			StrokeWidth: 15,
		},
	}
}

// MaxDistance retorna o alcance em mm (max_distance × 10, ou o padrão)
func MaxDistance(snap telemetry.Snapshot, sensorID string) float64 {
	if v, ok := snap.Number(telemetry.MaxDistance(sensorID)); ok {
		return v * maxDistanceFactor
	}
	return DefaultMaxDistance
}

// InstallationAngle retorna o ângulo de instalação em graus (0 se indisponível)
func InstallationAngle(snap telemetry.Snapshot, sensorID string) float64 {
	if v, ok := snap.Number(telemetry.InstallationAngle(sensorID)); ok {
		return v
	}
	return 0
}

// ArcPoints constrói o contorno de cobertura no referencial local do sensor:
// origem, borda a +60°, os passos da curva, borda a -60°, origem.
func ArcPoints(maxDistance float64) []r2.Vec {
	ratio := maxDistance / DefaultMaxDistance
	sin60 := math.Sin(60 * math.Pi / 180)
	cos60 := math.Cos(60 * math.Pi / 180)

	pts := make([]r2.Vec, 0, len(coverageSteps)+4)
	pts = append(pts, r2.Vec{}, r2.Vec{X: maxDistance * sin60, Y: maxDistance * cos60})

	for _, step := range coverageSteps {
		sx := step * ratio
		pts = append(pts, r2.Vec{X: sx, Y: math.Sqrt(math.Max(0, maxDistance*maxDistance-sx*sx))})
	}

	pts = append(pts, r2.Vec{X: -maxDistance * sin60, Y: maxDistance * cos60}, r2.Vec{})
	return pts
}

// CoverageArc monta o polígono de cobertura na planta
func CoverageArc(sensorID string, tr Transformer, maxDistance float64, paint models.Paint) models.Shape {
	local := ArcPoints(maxDistance)
	points := make([]r2.Vec, len(local))
	for i, p := range local {
		points[i] = tr.TransformArc(p.X, p.Y)
	}

	return models.Shape{
		Kind:     models.ShapePolygon,
		Layer:    models.LayerCoverage,
		SensorID: sensorID,
		Points:   points,
		Style: models.Style{
			Fill:            paint.Fill,
			Stroke:          paint.Stroke,
			StrokeWidth:     20,
			StrokeDashArray: "60,40",
		},
	}
}

// SensorMarker gera o triângulo direcional e o ponto de origem do sensor
func SensorMarker(sensorID string, tr Transformer, color string) []models.Shape {
	tri := []r2.Vec{
		tr.RotateMarker(0, -markerSize),
		tr.RotateMarker(-markerSize*0.6, markerSize*0.5),
		tr.RotateMarker(markerSize*0.6, markerSize*0.5),
	}

	return []models.Shape{
		{
			Kind:     models.ShapePolygon,
			Layer:    models.LayerSensors,
			SensorID: sensorID,
			Points:   tri,
			Style: models.Style{
				Fill:        color,
				Stroke:      "white",
				StrokeWidth: 25,
				Opacity:     0.85,
			},
		},
		{
			Kind:     models.ShapeCircle,
			Layer:    models.LayerSensors,
			SensorID: sensorID,
			Center:   tr.Anchor(),
			Radius:   60,
			Style: models.Style{
				Fill:        "white",
				Stroke:      color,
				StrokeWidth: 20,
			},
		},
	}
}

// SensorLabel gera o nome do sensor abaixo da âncora, com halo
func SensorLabel(sensorID, name string, anchor r2.Vec, color string) models.Shape {
	return models.Shape{
		Kind:     models.ShapeText,
		Layer:    models.LayerLabels,
		SensorID: sensorID,
		Center:   r2.Add(anchor, r2.Vec{Y: labelOffset}),
		Text:     name,
		Style: models.Style{
			Fill:        color,
			Stroke:      "white",
			StrokeWidth: 40,
			FontSize:    160,
			FontWeight:  "600",
			TextAnchor:  "middle",
			PaintOrder:  "stroke",
		},
	}
}
