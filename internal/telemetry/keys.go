package telemetry

import "fmt"

// Domínios das entidades publicadas pelo sensor
const (
	DomainSensor = "sensor"
	DomainNumber = "number"
)

// Quantidade de slots fixos por sensor
const (
	TargetSlots = 3
	ZoneSlots   = 4
)

// EntityID monta a chave "<domain>.<sensor-id>_<field>"
func EntityID(domain, sensorID, field string) string {
	return domain + "." + sensorID + "_" + field
}

// TargetX retorna a entidade da coordenada X do alvo t (1..3)
func TargetX(sensorID string, t int) string {
	return EntityID(DomainSensor, sensorID, fmt.Sprintf("target_%d_x", t))
}

// TargetY retorna a entidade da coordenada Y do alvo t (1..3)
func TargetY(sensorID string, t int) string {
	return EntityID(DomainSensor, sensorID, fmt.Sprintf("target_%d_y", t))
}

// InstallationAngle retorna a entidade do ângulo de instalação
func InstallationAngle(sensorID string) string {
	return EntityID(DomainNumber, sensorID, "installation_angle")
}

// MaxDistance retorna a entidade do alcance máximo
func MaxDistance(sensorID string) string {
	return EntityID(DomainNumber, sensorID, "max_distance")
}

// Rect agrupa as quatro entidades de um retângulo (zona ou máscara)
type Rect struct {
	BeginX, BeginY, EndX, EndY string
}

// Keys retorna as entidades na ordem begin_x, begin_y, end_x, end_y
func (r Rect) Keys() []string {
	return []string{r.BeginX, r.BeginY, r.EndX, r.EndY}
}

func rectFor(sensorID, name string) Rect {
	return Rect{
		BeginX: EntityID(DomainNumber, sensorID, name+"_begin_x"),
		BeginY: EntityID(DomainNumber, sensorID, name+"_begin_y"),
		EndX:   EntityID(DomainNumber, sensorID, name+"_end_x"),
		EndY:   EntityID(DomainNumber, sensorID, name+"_end_y"),
	}
}

// Zone retorna as entidades da zona z (1..4)
func Zone(sensorID string, z int) Rect {
	return rectFor(sensorID, fmt.Sprintf("zone_%d", z))
}

// OccupancyMask retorna as entidades da máscara de ocupação
func OccupancyMask(sensorID string) Rect {
	return rectFor(sensorID, "occupancy_mask_1")
}

// SensorKeys retorna todas as entidades lidas para um sensor, em ordem fixa:
// alvos 1..3 (x, y), ângulo de instalação, alcance, zonas 1..4, máscara.
func SensorKeys(sensorID string) []string {
	keys := make([]string, 0, TargetSlots*2+2+(ZoneSlots+1)*4)
	for t := 1; t <= TargetSlots; t++ {
		keys = append(keys, TargetX(sensorID, t), TargetY(sensorID, t))
	}
	keys = append(keys, InstallationAngle(sensorID), MaxDistance(sensorID))
	for z := 1; z <= ZoneSlots; z++ {
		keys = append(keys, Zone(sensorID, z).Keys()...)
	}
	keys = append(keys, OccupancyMask(sensorID).Keys()...)
	return keys
}
