package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ColorSpec é uma cor ainda não resolvida, vinda da configuração.
// Aceita uma string ("#03a9f4", "rgba(...)", "red") ou um par {fill, stroke}.
// Um *ColorSpec nil significa "não informado".
type ColorSpec struct {
	Value string
	Pair  *Paint
}

// ColorString cria uma especificação a partir de uma string
func ColorString(s string) *ColorSpec {
	return &ColorSpec{Value: s}
}

// ColorPair cria uma especificação com fill e stroke explícitos
func ColorPair(fill, stroke string) *ColorSpec {
	return &ColorSpec{Pair: &Paint{Fill: fill, Stroke: stroke}}
}

// UnmarshalJSON aceita string, objeto {fill, stroke} ou null
func (c *ColorSpec) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = ColorSpec{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = ColorSpec{Value: s}
		return nil
	case '{':
		var p Paint
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*c = ColorSpec{Pair: &p}
		return nil
	default:
		return fmt.Errorf("cor inválida: %s", string(data))
	}
}

// MarshalJSON serializa no mesmo formato aceito pelo UnmarshalJSON
func (c ColorSpec) MarshalJSON() ([]byte, error) {
	if c.Pair != nil {
		return json.Marshal(c.Pair)
	}
	return json.Marshal(c.Value)
}
