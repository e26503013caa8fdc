package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cast"

	"minimap_go/internal/models"
)

// Tipos de mensagem enviados pelo servidor
const (
	TypeWelcome = "welcome"
	TypeScene   = "scene"
	TypeLayers  = "layers"
	TypeStatus  = "status"
	TypePing    = "ping"
	TypePong    = "pong"
	TypeError   = "error"
)

// Comandos aceitos dos clientes
const (
	CommandToggleLayer = "toggle_layer"
	CommandGetScene    = "get_scene"
	CommandGetLayers   = "get_layers"
	CommandGetStatus   = "get_status"
	CommandPing        = "ping"
)

// NewSceneMessage cria uma nova mensagem de cena
func NewSceneMessage(scene *models.Scene) *models.SceneMessage {
	return &models.SceneMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      TypeScene,
			Timestamp: time.Now(),
		},
		Scene: scene,
	}
}

// NewLayersMessage cria uma nova mensagem de visibilidade das camadas
func NewLayersMessage(layers models.LayerSet) *models.LayersMessage {
	return &models.LayersMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      TypeLayers,
			Timestamp: time.Now(),
		},
		Layers: layers,
	}
}

// NewStatusMessage cria uma nova mensagem de status
func NewStatusMessage(status models.ServiceStatus) *models.StatusMessage {
	return &models.StatusMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      TypeStatus,
			Timestamp: time.Now(),
		},
		Status:     status.Status,
		LastError:  status.LastError,
		ErrorCount: status.ErrorCount,
	}
}

// NewErrorMessage cria uma nova mensagem de erro
func NewErrorMessage(message string, errorCode string) models.WebSocketMessage {
	return models.WebSocketMessage{
		Type:      TypeError,
		Timestamp: time.Now(),
		Error:     message,
		Data: map[string]string{
			"code": errorCode,
		},
	}
}

// SerializeMessage serializa uma mensagem para JSON
func SerializeMessage(message interface{}) ([]byte, error) {
	return json.Marshal(message)
}

// ParseClientCommand analisa um comando recebido do cliente
func ParseClientCommand(data []byte) (models.CommandMessage, error) {
	var command models.CommandMessage
	err := json.Unmarshal(data, &command)
	return command, err
}

// CreatePongResponse cria uma resposta para um ping do cliente
func CreatePongResponse(pingTime int64) *models.PongMessage {
	return &models.PongMessage{
		WebSocketMessage: models.WebSocketMessage{
			Type:      TypePong,
			Timestamp: time.Now(),
		},
		Time:       pingTime,
		ServerTime: time.Now().UnixNano() / int64(time.Millisecond),
	}
}

// layerParam extrai o parâmetro "layer" de um comando toggle_layer
func layerParam(params interface{}) (models.Layer, error) {
	m, err := cast.ToStringMapE(params)
	if err != nil {
		return 0, fmt.Errorf("parâmetros inválidos: %w", err)
	}
	name := cast.ToString(m["layer"])
	if name == "" {
		return 0, fmt.Errorf("parâmetro \"layer\" ausente")
	}
	return models.ParseLayer(name)
}

// pingTime extrai o parâmetro "time" de um ping
func pingTime(params interface{}) int64 {
	m, err := cast.ToStringMapE(params)
	if err != nil {
		return 0
	}
	return cast.ToInt64(m["time"])
}
