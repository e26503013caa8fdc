package websocket

import (
	"context"
	"sync"
	"time"

	"minimap_go/internal/metrics"
	"minimap_go/internal/models"
	"minimap_go/pkg/logger"
)

// SceneProvider é a fonte das cenas e da visibilidade das camadas
type SceneProvider interface {
	GetScene() *models.Scene
	GetStatus() models.ServiceStatus
	Layers() models.LayerSet
	ToggleLayer(ctx context.Context, layer models.Layer) (models.LayerSet, error)
}

// Hub gerencia todas as conexões WebSocket e distribuição de mensagens
type Hub struct {
	// Clientes registrados
	clients map[*Client]bool

	// Canal para registrar clientes
	register chan *Client

	// Canal para desregistrar clientes
	unregister chan *Client

	// Canal para mensagens de broadcast
	broadcast chan []byte

	// Comando recebido dos clientes
	commands chan models.ClientCommand

	// Mutex para operações concorrentes no mapa de clientes
	mu sync.RWMutex

	provider SceneProvider
	recorder *metrics.Recorder

	// Estatísticas
	stats struct {
		totalMessages      int64
		totalClients       int64
		dropped            int64
		messagesPerSecond  float64
		lastStatsReset     time.Time
		messagesSinceReset int64
	}
	statsLock sync.Mutex

	// Sinal para encerramento do hub
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub cria uma nova instância do Hub. recorder pode ser nil.
func NewHub(provider SceneProvider, recorder *metrics.Recorder) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		commands:   make(chan models.ClientCommand, 100),
		provider:   provider,
		recorder:   recorder,
		ctx:        ctx,
		cancel:     cancel,
	}

	h.stats.lastStatsReset = time.Now()

	return h
}

// Run inicia o loop principal do hub para gerenciar clientes e mensagens
func (h *Hub) Run() {
	logger.Info("Iniciando WebSocket Hub")

	// Ticker para estatísticas periódicas
	statsTicker := time.NewTicker(30 * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			logger.Info("Encerrando WebSocket Hub")
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()

			logger.Infof("Novo cliente WebSocket conectado. ID: %s. Total: %d", client.id, clientCount)
			h.recorder.SetWebsocketClients(clientCount)

			h.statsLock.Lock()
			h.stats.totalClients++
			h.statsLock.Unlock()

			h.sendInitialDataToClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.statsLock.Lock()
			h.stats.totalMessages++
			h.stats.messagesSinceReset++
			h.statsLock.Unlock()

			h.mu.RLock()
			deadClients := make([]*Client, 0, 4)
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Canal do cliente está cheio, marcar para desconexão
					deadClients = append(deadClients, client)
				}
			}
			h.mu.RUnlock()

			for _, client := range deadClients {
				logger.Warnf("Cliente WebSocket %s lento, desconectando", client.id)
				h.removeClient(client)
			}

		case cmd := <-h.commands:
			go h.handleClientCommand(cmd)

		case <-statsTicker.C:
			h.statsLock.Lock()
			elapsed := time.Since(h.stats.lastStatsReset).Seconds()
			if elapsed > 0 {
				h.stats.messagesPerSecond = float64(h.stats.messagesSinceReset) / elapsed
			}
			h.stats.messagesSinceReset = 0
			h.stats.lastStatsReset = time.Now()
			mps := h.stats.messagesPerSecond
			total := h.stats.totalMessages
			dropped := h.stats.dropped
			h.statsLock.Unlock()

			logger.Debugf("Estatísticas WebSocket: %d clientes, %.2f msgs/seg, total: %d mensagens, descartadas: %d",
				h.ClientCount(), mps, total, dropped)
		}
	}
}

// BroadcastScene envia a cena recalculada para todos os clientes
func (h *Hub) BroadcastScene(scene *models.Scene) {
	if scene == nil {
		return
	}
	h.publish(NewSceneMessage(scene), "cena")
}

// BroadcastLayers envia a visibilidade das camadas para todos os clientes
func (h *Hub) BroadcastLayers(layers models.LayerSet) {
	h.publish(NewLayersMessage(layers), "camadas")
}

// BroadcastStatus envia atualização de status para todos os clientes
func (h *Hub) BroadcastStatus(status models.ServiceStatus) {
	h.publish(NewStatusMessage(status), "status")
}

// publish serializa e enfileira uma mensagem sem bloquear o chamador
func (h *Hub) publish(message interface{}, kind string) {
	jsonMessage, err := SerializeMessage(message)
	if err != nil {
		logger.Errorf("Erro ao serializar mensagem de %s: %v", kind, err)
		return
	}

	select {
	case h.broadcast <- jsonMessage:
	case <-h.ctx.Done():
	default:
		h.statsLock.Lock()
		h.stats.dropped++
		h.statsLock.Unlock()
		logger.Warnf("Fila de broadcast cheia, mensagem de %s descartada", kind)
	}
}

// handleClientCommand processa comandos encaminhados pelos clientes
func (h *Hub) handleClientCommand(cmd models.ClientCommand) {
	logger.Debugf("Comando recebido do cliente %s: %s", cmd.ClientID, cmd.Command)

	client := h.getClientByID(cmd.ClientID)
	if client == nil {
		return
	}

	switch cmd.Command {
	case CommandToggleLayer:
		layer, err := layerParam(cmd.Params)
		if err != nil {
			h.sendTo(client, NewErrorMessage(err.Error(), "invalid_layer"))
			return
		}

		// A nova visibilidade chega a todos pelo BroadcastLayers registrado no serviço
		ctx, cancel := context.WithTimeout(h.ctx, 2*time.Second)
		defer cancel()
		if _, err := h.provider.ToggleLayer(ctx, layer); err != nil {
			h.sendTo(client, NewErrorMessage(err.Error(), "toggle_failed"))
		}

	case CommandGetScene:
		if scene := h.provider.GetScene(); scene != nil {
			h.sendTo(client, NewSceneMessage(scene))
		}

	case CommandGetLayers:
		h.sendTo(client, NewLayersMessage(h.provider.Layers()))

	case CommandGetStatus:
		h.sendTo(client, NewStatusMessage(h.provider.GetStatus()))

	default:
		logger.Warnf("Comando desconhecido: %s", cmd.Command)
		h.sendTo(client, NewErrorMessage("Comando desconhecido: "+cmd.Command, "unknown_command"))
	}
}

// sendInitialDataToClient envia boas-vindas, camadas e a cena atual
func (h *Hub) sendInitialDataToClient(client *Client) {
	welcome := models.WebSocketMessage{
		Type:      TypeWelcome,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"message":  "Conectado ao servidor Presence Minimap",
			"clientId": client.id,
		},
	}
	h.sendTo(client, welcome)
	h.sendTo(client, NewLayersMessage(h.provider.Layers()))

	if scene := h.provider.GetScene(); scene != nil {
		h.sendTo(client, NewSceneMessage(scene))
	}
}

// sendTo envia uma mensagem para um único cliente, se ainda registrado
func (h *Hub) sendTo(client *Client, message interface{}) {
	jsonMsg, err := SerializeMessage(message)
	if err != nil {
		logger.Errorf("Erro ao serializar mensagem para o cliente %s: %v", client.id, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.clients[client] {
		return
	}
	select {
	case client.send <- jsonMsg:
	default:
		logger.Warnf("Buffer do cliente %s cheio, mensagem descartada", client.id)
	}
}

// removeClient desregistra o cliente e fecha seu canal de envio
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	clientCount := len(h.clients)
	h.mu.Unlock()

	logger.Infof("Cliente WebSocket desconectado. ID: %s. Total: %d", client.id, clientCount)
	h.recorder.SetWebsocketClients(clientCount)
}

// Shutdown encerra graciosamente o hub
func (h *Hub) Shutdown() {
	h.cancel()
	// Aguardar um pequeno tempo para processamento finalizar
	time.Sleep(100 * time.Millisecond)
}

// closeAllClients fecha todas as conexões dos clientes
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	logger.Info("Fechando todas as conexões de clientes WebSocket")
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.recorder.SetWebsocketClients(0)
}

// ClientCount retorna o número atual de clientes conectados
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// getClientByID retorna um cliente pelo seu ID
func (h *Hub) getClientByID(clientID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.id == clientID {
			return client
		}
	}
	return nil
}
