package overlay

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"minimap_go/internal/config"
	"minimap_go/internal/telemetry"
)

// Fingerprint resume as leituras que afetam a geometria da cena
type Fingerprint uint64

// String retorna o fingerprint em hexadecimal
func (f Fingerprint) String() string {
	return fmt.Sprintf("%016x", uint64(f))
}

// ComputeFingerprint percorre os sensores em ordem de configuração e,
// para cada entidade observada, grava presença, estado e unidade com
// prefixo de tamanho. Campos distintos nunca colidem por concatenação.
func ComputeFingerprint(card *config.CardConfig, snap telemetry.Snapshot) Fingerprint {
	d := xxhash.New()
	buf := make([]byte, 0, 256)

	for _, s := range card.Sensors {
		buf = appendField(buf[:0], s.ID)
		for _, key := range telemetry.SensorKeys(s.ID) {
			r, ok := snap[key]
			if !ok {
				buf = append(buf, 0)
				continue
			}
			buf = append(buf, 1)
			buf = appendField(buf, r.State)
			buf = appendField(buf, r.Unit)
		}
		_, _ = d.Write(buf)
	}

	return Fingerprint(d.Sum64())
}

func appendField(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

// Gate decide se uma passada de renderização é necessária.
// Não é seguro para uso concorrente: pertence ao loop do serviço.
type Gate struct {
	last   Fingerprint
	primed bool
}

// Check retorna true se o fingerprint mudou (ou se o gate foi resetado)
// e registra o novo valor.
func (g *Gate) Check(fp Fingerprint) bool {
	if g.primed && fp == g.last {
		return false
	}
	g.last = fp
	g.primed = true
	return true
}

// Reset força a próxima verificação a renderizar
func (g *Gate) Reset() {
	g.primed = false
}

// Last retorna o último fingerprint aceito
func (g *Gate) Last() (Fingerprint, bool) {
	return g.last, g.primed
}
