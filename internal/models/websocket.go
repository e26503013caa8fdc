package models

import "time"

// WebSocketMessage representa a estrutura base de todas as mensagens WebSocket
type WebSocketMessage struct {
	Type      string      `json:"type"`            // Tipo da mensagem: "scene", "layers", "status", etc.
	Timestamp time.Time   `json:"timestamp"`       // Timestamp da mensagem
	Data      interface{} `json:"data,omitempty"`  // Dados adicionais específicos do tipo
	Error     string      `json:"error,omitempty"` // Mensagem de erro, se houver
}

// SceneMessage transporta uma cena completa recalculada
type SceneMessage struct {
	WebSocketMessage
	Scene *Scene `json:"scene"`
}

// LayersMessage informa a visibilidade atual das camadas
type LayersMessage struct {
	WebSocketMessage
	Layers LayerSet `json:"layers"`
}

// StatusMessage informa o estado da fonte de telemetria
type StatusMessage struct {
	WebSocketMessage
	Status     string `json:"status"`
	LastError  string `json:"lastError,omitempty"`
	ErrorCount int    `json:"errorCount,omitempty"`
}

// ServiceStatus é o estado do serviço de renderização
type ServiceStatus struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	LastError   string    `json:"lastError,omitempty"`
	ErrorCount  int       `json:"errorCount,omitempty"`
	Renders     int64     `json:"renders"`
	Skipped     int64     `json:"skipped"`
	LastRender  time.Time `json:"lastRender,omitempty"`
	SensorCount int       `json:"sensorCount"`
}

// CommandMessage é uma mensagem de comando do cliente para o servidor
type CommandMessage struct {
	Type   string      `json:"type"`             // Tipo de comando: "toggle_layer", "get_scene", etc.
	Params interface{} `json:"params,omitempty"` // Parâmetros adicionais
	ID     string      `json:"id,omitempty"`     // ID opcional para correlacionar solicitações/respostas
}

// ClientCommand representa um comando enviado pelo cliente
type ClientCommand struct {
	Command   string      `json:"command"`
	Params    interface{} `json:"params,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
	ClientID  string      `json:"-"` // Usado internamente, não enviado no JSON
}

// PingMessage representa um ping enviado pelo cliente
type PingMessage struct {
	WebSocketMessage
	Time int64 `json:"time"` // Timestamp em milissegundos
}

// PongMessage representa um pong enviado pelo servidor
type PongMessage struct {
	WebSocketMessage
	Time       int64 `json:"time"`       // Timestamp original do ping
	ServerTime int64 `json:"serverTime"` // Timestamp do servidor em milissegundos
}
