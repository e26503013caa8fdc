package redis

import (
	"fmt"

	"github.com/go-redis/redis/v8"

	"minimap_go/internal/config"
	"minimap_go/internal/telemetry"
)

// Campos do hash de cada entidade
const (
	fieldState = "state"
	fieldUnit  = "unit_of_measurement"
)

// newClient cria o cliente Redis a partir da configuração
func newClient(cfg config.RedisConfig) *redis.Client {
	// Configurar endereço
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// entityKey monta a chave do hash de uma entidade: "<prefix>:<entity_id>"
func entityKey(prefix, entityID string) string {
	if prefix == "" {
		return entityID
	}
	return prefix + ":" + entityID
}

// decodeReading converte o hash de uma entidade em leitura.
// Hash vazio (chave inexistente) retorna false.
func decodeReading(fields map[string]string) (telemetry.Reading, bool) {
	state, ok := fields[fieldState]
	if !ok {
		return telemetry.Reading{}, false
	}
	return telemetry.Reading{State: state, Unit: fields[fieldUnit]}, true
}

// encodeReading converte uma leitura nos campos do hash.
// Sem unidade, o campo fica de fora e o HSET preserva a unidade gravada antes.
func encodeReading(r telemetry.Reading) map[string]interface{} {
	fields := map[string]interface{}{fieldState: r.State}
	if r.Unit != "" {
		fields[fieldUnit] = r.Unit
	}
	return fields
}
