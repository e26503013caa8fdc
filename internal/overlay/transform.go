package overlay

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Mount descreve como um sensor está montado na planta
type Mount struct {
	X, Y              float64 // âncora em coordenadas da planta
	Rotation          float64 // rotação na planta, graus
	InstallationAngle float64 // ângulo de instalação reportado pelo sensor, graus
	MirrorX, MirrorY  bool
	Scale             float64 // 0 = 1
}

// Transformer converte pontos locais do sensor em coordenadas da planta.
// Os senos e cossenos são calculados uma vez por sensor e por passada.
type Transformer struct {
	anchor  r2.Vec
	mirrorX bool
	mirrorY bool
	scale   float64

	fpCos, fpSin float64
	iaCos, iaSin float64
}

// NewTransformer cria o transformador para uma montagem
func NewTransformer(m Mount) Transformer {
	scale := m.Scale
	if scale == 0 {
		scale = 1
	}

	fpRad := m.Rotation * math.Pi / 180
	iaRad := -m.InstallationAngle * math.Pi / 180

	return Transformer{
		anchor:  r2.Vec{X: m.X, Y: m.Y},
		mirrorX: m.MirrorX,
		mirrorY: m.MirrorY,
		scale:   scale,
		fpCos:   math.Cos(fpRad),
		fpSin:   math.Sin(fpRad),
		iaCos:   math.Cos(iaRad),
		iaSin:   math.Sin(iaRad),
	}
}

// Anchor retorna a posição do sensor na planta
func (t Transformer) Anchor() r2.Vec {
	return t.anchor
}

// TransformData converte dados reportados pelo sensor (alvos, zonas, máscaras).
// O ângulo de instalação já vem embutido nessas coordenadas.
func (t Transformer) TransformData(x, y float64) r2.Vec {
	x, y = t.local(x, y)
	return t.place(x, y)
}

// TransformArc converte pontos construídos geometricamente (arco de cobertura),
// aplicando o ângulo de instalação antes da rotação da planta.
func (t Transformer) TransformArc(x, y float64) r2.Vec {
	x, y = t.local(x, y)
	rx := x*t.iaCos + y*t.iaSin
	ry := -x*t.iaSin + y*t.iaCos
	return t.place(rx, ry)
}

// RotateMarker gira um ponto do ícone com a matriz de rotação padrão
// e o translada para a âncora. Sem espelho nem escala.
func (t Transformer) RotateMarker(x, y float64) r2.Vec {
	return r2.Add(t.anchor, r2.Vec{
		X: x*t.fpCos - y*t.fpSin,
		Y: x*t.fpSin + y*t.fpCos,
	})
}

// espelho e escala
func (t Transformer) local(x, y float64) (float64, float64) {
	if t.mirrorX {
		x = -x
	}
	if t.mirrorY {
		y = -y
	}
	return x * t.scale, y * t.scale
}

// Base de reflexão-rotação da planta: o Y local aponta para longe do sensor
// e é invertido em relação ao Y da imagem.
func (t Transformer) place(x, y float64) r2.Vec {
	return r2.Add(t.anchor, r2.Vec{
		X: x*t.fpCos + y*t.fpSin,
		Y: x*t.fpSin - y*t.fpCos,
	})
}
