package telemetry

import (
	"context"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// Unidades reconhecidas para as coordenadas de alvo
const (
	UnitInch       = "in"
	UnitMillimeter = "mm"
)

// Reading é o estado bruto de uma entidade, como publicado pelo sensor
type Reading struct {
	State string `json:"state"`
	Unit  string `json:"unit_of_measurement,omitempty"`
}

// Snapshot é um conjunto de leituras indexado pelo entity id
type Snapshot map[string]Reading

// Source fornece leituras atuais para um conjunto de entidades.
// Entidades ausentes simplesmente não aparecem no Snapshot.
type Source interface {
	Snapshot(ctx context.Context, keys []string) (Snapshot, error)
}

// Writer grava leituras na store de estado
type Writer interface {
	SetState(ctx context.Context, entityID string, r Reading) error
}

// Get retorna a leitura da entidade, se presente
func (s Snapshot) Get(key string) (Reading, bool) {
	r, ok := s[key]
	return r, ok
}

// Number retorna o valor numérico da entidade.
// Ausente, vazio ou não numérico conta como indisponível.
func (s Snapshot) Number(key string) (float64, bool) {
	r, ok := s[key]
	if !ok {
		return 0, false
	}
	return ParseNumber(r.State)
}

// Unit retorna a unidade reportada pela entidade ("" se ausente)
func (s Snapshot) Unit(key string) string {
	return s[key].Unit
}

// ParseNumber converte um estado em número finito
func ParseNumber(state string) (float64, bool) {
	state = strings.TrimSpace(state)
	if state == "" {
		return 0, false
	}

	v, err := cast.ToFloat64E(state)
	if err != nil {
		return 0, false
	}

	// NaN e infinitos não são coordenadas válidas
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}

	return v, true
}
