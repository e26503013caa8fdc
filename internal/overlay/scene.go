package overlay

import (
	"minimap_go/internal/config"
	"minimap_go/internal/models"
	"minimap_go/internal/telemetry"
)

// Composer monta cenas a partir da configuração do card.
// Compose é uma função pura de (configuração, leituras, visibilidade).
type Composer struct {
	card    *config.CardConfig
	palette Palette
}

// NewComposer cria um compositor com a paleta informada
func NewComposer(card *config.CardConfig, palette Palette) *Composer {
	return &Composer{card: card, palette: palette}
}

// Card retorna a configuração usada pelo compositor
func (c *Composer) Card() *config.CardConfig {
	return c.card
}

// EntityKeys retorna todas as entidades que uma passada lê, em ordem de sensor
func (c *Composer) EntityKeys() []string {
	return EntityKeys(c.card)
}

// EntityKeys retorna as entidades lidas para todos os sensores do card
func EntityKeys(card *config.CardConfig) []string {
	keys := make([]string, 0, len(card.Sensors)*28)
	for _, s := range card.Sensors {
		keys = append(keys, telemetry.SensorKeys(s.ID)...)
	}
	return keys
}

// Compose usa a paleta padrão
func Compose(card *config.CardConfig, snap telemetry.Snapshot, vis models.LayerSet) *models.Scene {
	return NewComposer(card, DefaultPalette()).Compose(snap, vis)
}

// Compose gera as seis camadas em ordem de pintura.
// Camadas ocultas existem na cena, mas sem formas.
func (c *Composer) Compose(snap telemetry.Snapshot, vis models.LayerSet) *models.Scene {
	card := c.card

	layers := make([]models.LayerShapes, models.LayerCount)
	for _, l := range models.Layers() {
		layers[l] = models.LayerShapes{
			Layer:   l,
			Label:   l.Label(),
			Visible: vis.Visible(l),
			Shapes:  []models.Shape{},
		}
	}
	add := func(l models.Layer, shapes ...models.Shape) {
		if vis.Visible(l) {
			layers[l].Shapes = append(layers[l].Shapes, shapes...)
		}
	}

	targetSize := card.TargetSize
	if targetSize == 0 {
		targetSize = config.DefaultTargetSize
	}

	sensors := make([]models.SensorSummary, 0, len(card.Sensors))
	for _, s := range card.Sensors {
		color := s.Color
		if color == "" {
			color = c.palette.Sensor
		}

		mirrorX, mirrorY := s.Mirrors(card)
		ia := InstallationAngle(snap, s.ID)
		md := MaxDistance(snap, s.ID)

		tr := NewTransformer(Mount{
			X:                 s.X,
			Y:                 s.Y,
			Rotation:          s.Rotation,
			InstallationAngle: ia,
			MirrorX:           mirrorX,
			MirrorY:           mirrorY,
			Scale:             s.EffectiveScale(),
		})

		// Cobertura
		if vis.Visible(models.LayerCoverage) {
			paint := Resolve(CoverageAlphas, c.palette.Coverage, s.CoverageColor, card.CoverageColor)
			add(models.LayerCoverage, CoverageArc(s.ID, tr, md, paint))
		}

		// Zonas: cor por sensor > global > padrão
		if vis.Visible(models.LayerZones) {
			for z := 1; z <= telemetry.ZoneSlots; z++ {
				pts, ok := RectangleCorners(tr, snap, telemetry.Zone(s.ID, z))
				if !ok {
					continue
				}
				paint := Resolve(ZoneAlphas, c.palette.Zone(z), At(s.ZoneColors, z-1), At(card.ZoneColors, z-1))
				add(models.LayerZones, Rectangle(s.ID, models.LayerZones, pts, paint))
			}
		}

		// Máscara de ocupação
		if vis.Visible(models.LayerMasks) {
			if pts, ok := RectangleCorners(tr, snap, telemetry.OccupancyMask(s.ID)); ok {
				paint := Resolve(MaskAlphas, c.palette.Mask, s.MaskColor, card.MaskColor)
				add(models.LayerMasks, Rectangle(s.ID, models.LayerMasks, pts, paint))
			}
		}

		// Alvos
		targets := ActiveTargets(snap, s.ID)
		add(models.LayerTargets, TargetMarkers(s.ID, tr, targets, color, targetSize)...)

		// Ícone e rótulo
		add(models.LayerSensors, SensorMarker(s.ID, tr, color)...)
		add(models.LayerLabels, SensorLabel(s.ID, s.DisplayName(), tr.Anchor(), color))

		sensors = append(sensors, models.SensorSummary{
			ID:                s.ID,
			Name:              s.DisplayName(),
			X:                 s.X,
			Y:                 s.Y,
			ActiveTargets:     len(targets),
			InstallationAngle: ia,
			MaxDistance:       md,
		})
	}

	return &models.Scene{
		Title:      card.Title,
		Image:      card.Image,
		Width:      card.ImageWidth,
		Height:     card.ImageHeight,
		CardHeight: card.CardHeight,
		Layers:     layers,
		Sensors:    sensors,
	}
}
