package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"minimap_go/internal/config"
	"minimap_go/internal/discovery"
	"minimap_go/internal/metrics"
	"minimap_go/internal/minimap"
	"minimap_go/internal/models"
	"minimap_go/internal/mqtt"
	"minimap_go/internal/plc"
	"minimap_go/internal/redis"
	"minimap_go/internal/telemetry"
	"minimap_go/internal/websocket"
	"minimap_go/pkg/logger"
)

// Version é a versão do servidor
const Version = "1.0.0"

// Server encapsula o servidor HTTP com todos os componentes
type Server struct {
	config           *config.Config
	httpServer       *http.Server
	router           *mux.Router
	recorder         *metrics.Recorder
	minimapService   *minimap.Service
	redisService     *redis.Service
	memoryStore      *telemetry.MemoryStore
	mqttBridge       *mqtt.Bridge
	plcService       *plc.PLCService
	wsHub            *websocket.Hub
	discoveryService *discovery.DiscoveryService
	serverInfo       ServerInfo

	ctx    context.Context
	cancel context.CancelFunc
}

// ServerInfo contém informações sobre o servidor
type ServerInfo struct {
	IP           string
	Port         int
	StartTime    time.Time
	Connections  int
	Version      string
	WebSocketURL string
	APIURL       string
}

// NewServer cria uma nova instância do servidor
func NewServer(cfg *config.Config) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())

	server := &Server{
		config:   cfg,
		router:   mux.NewRouter(),
		recorder: metrics.NewRecorder(),
		serverInfo: ServerInfo{
			StartTime: time.Now(),
			Version:   Version,
			Port:      cfg.Server.Port,
		},
		ctx:    ctx,
		cancel: cancel,
	}

	// Determinar IP do servidor
	ip, err := discovery.LocalIP()
	if err != nil {
		logger.Warnf("Não foi possível determinar o IP local: %v", err)
		ip = "localhost"
	}
	server.serverInfo.IP = ip

	server.serverInfo.WebSocketURL = fmt.Sprintf("ws://%s:%d/ws", ip, cfg.Server.Port)
	server.serverInfo.APIURL = fmt.Sprintf("http://%s:%d/api", ip, cfg.Server.Port)

	if err := server.initComponents(); err != nil {
		cancel()
		return nil, err
	}

	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.wrapWithMiddleware(server.router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return server, nil
}

// initComponents inicializa todos os componentes do servidor
func (s *Server) initComponents() error {
	redisService, err := redis.NewService(s.config.Redis)
	if err != nil {
		return fmt.Errorf("erro ao inicializar serviço Redis: %w", err)
	}
	s.redisService = redisService

	// Store de telemetria: Redis quando disponível, memória caso contrário
	var source telemetry.Source
	var writer telemetry.Writer
	if redisService.IsConnected() {
		source, writer = redisService, redisService
	} else {
		logger.Warn("Redis indisponível, usando store de telemetria em memória")
		s.memoryStore = telemetry.NewMemoryStore()
		source, writer = s.memoryStore, s.memoryStore
	}

	s.minimapService = minimap.NewService(&s.config.Card, source, s.recorder)

	s.wsHub = websocket.NewHub(s.minimapService, s.recorder)
	go s.wsHub.Run()

	// Cenas, status e camadas vão para os clientes WebSocket
	s.minimapService.RegisterSceneHandler(s.wsHub.BroadcastScene)
	s.minimapService.RegisterStatusHandler(s.wsHub.BroadcastStatus)
	s.minimapService.RegisterLayersHandler(s.wsHub.BroadcastLayers)

	if redisService.IsConnected() {
		s.minimapService.RegisterSceneHandler(func(scene *models.Scene) {
			if err := s.redisService.WriteOccupancy(scene); err != nil {
				logger.Warnf("Erro ao gravar ocupação no Redis: %v", err)
			}
		})
		s.minimapService.RegisterStatusHandler(func(status models.ServiceStatus) {
			if err := s.redisService.WriteStatus(status); err != nil {
				logger.Warnf("Erro ao gravar status no Redis: %v", err)
			}
		})
	} else {
		s.memoryStore.OnChange(func(string) { s.minimapService.Notify() })
	}

	if s.config.MQTT.Enabled {
		s.mqttBridge = mqtt.NewBridge(s.config.MQTT, writer, s.minimapService.Notify)
	}

	if s.config.PLC.Enabled {
		s.plcService = plc.NewPLCService(s.config.PLC, sensorIDs(&s.config.Card))
		s.minimapService.RegisterSceneHandler(s.plcService.UpdateScene)
	}

	s.discoveryService = discovery.NewDiscoveryService(s.config.Discovery, s.config.Server.Port)

	return nil
}

func sensorIDs(card *config.CardConfig) []string {
	ids := make([]string, len(card.Sensors))
	for i, sensor := range card.Sensors {
		ids[i] = sensor.ID
	}
	return ids
}

// Start inicia o servidor e todos os serviços
func (s *Server) Start() error {
	if err := s.discoveryService.Start(); err != nil {
		logger.Warnf("Erro ao iniciar serviço de descoberta: %v", err)
	}

	if err := s.minimapService.Start(); err != nil {
		return fmt.Errorf("erro ao iniciar serviço do minimapa: %w", err)
	}

	// Notificações de mudança publicadas no Redis disparam uma passada
	s.redisService.Subscribe(s.ctx, s.minimapService.Notify)

	if s.mqttBridge != nil {
		if err := s.mqttBridge.Start(); err != nil {
			logger.Errorf("Erro ao iniciar ponte MQTT: %v", err)
		}
	}

	if s.plcService != nil {
		if err := s.plcService.Start(); err != nil {
			logger.Errorf("Erro ao iniciar serviço PLC: %v", err)
		}
	}

	s.logServerInfo()

	logger.Infof("Iniciando servidor HTTP na porta %d", s.config.Server.Port)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("erro ao iniciar servidor HTTP: %w", err)
	}

	return nil
}

// Shutdown encerra graciosamente o servidor e todos os serviços
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Iniciando shutdown do servidor")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("Erro ao encerrar servidor HTTP: %v", err)
	}

	s.cancel()

	if s.discoveryService != nil {
		s.discoveryService.Stop()
	}
	if s.mqttBridge != nil {
		s.mqttBridge.Stop()
	}
	if s.minimapService != nil {
		s.minimapService.Stop()
	}
	if s.plcService != nil {
		s.plcService.Shutdown()
	}
	if s.wsHub != nil {
		s.wsHub.Shutdown()
	}
	if s.redisService != nil {
		s.redisService.Shutdown()
	}

	logger.Info("Shutdown completo")
	return nil
}

// GetServerInfo retorna informações sobre o servidor
func (s *Server) GetServerInfo() ServerInfo {
	info := s.serverInfo
	info.Connections = s.wsHub.ClientCount()
	return info
}

// logServerInfo exibe informações do servidor no log
func (s *Server) logServerInfo() {
	logger.Info("===============================================")
	logger.Info("            Presence Minimap Server            ")
	logger.Info("===============================================")
	logger.Infof("Versão: %s", s.serverInfo.Version)
	logger.Infof("Endereço IP: %s", s.serverInfo.IP)
	logger.Infof("Porta HTTP: %d", s.serverInfo.Port)
	logger.Infof("WebSocket URL: %s", s.serverInfo.WebSocketURL)
	logger.Infof("API URL: %s", s.serverInfo.APIURL)
	logger.Infof("Sensores: %d", len(s.config.Card.Sensors))
	if s.discoveryService.IsRunning() {
		logger.Infof("mDNS: %s", s.discoveryService.FullName())
	}
	logger.Info("===============================================")
	logger.Info("Servidor pronto para conexões!")
}
