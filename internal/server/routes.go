package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"

	"minimap_go/internal/api"
	"minimap_go/internal/render"
	"minimap_go/internal/websocket"
	"minimap_go/pkg/logger"
)

// setupRoutes configura todas as rotas do servidor
func (s *Server) setupRoutes() {
	wsHandler := websocket.NewHandler(s.wsHub, s.config.Server.AllowedOrigins)
	apiRouter := api.NewRouter(s.minimapService, render.NewSVGRenderer(), "/api")

	// Métricas HTTP por rota (precisa do template resolvido pelo mux)
	s.router.Use(s.recorder.Middleware)

	s.router.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/info", s.infoHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/api/discover", s.discoverHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/api/server-info", s.serverInfoHandler).Methods(http.MethodGet)

	// API REST
	apiRouter.Register(s.router)

	// WebSocket
	s.router.Handle("/ws", wsHandler)
	s.router.HandleFunc("/ws/health", wsHandler.GetHealthHandler())

	// Prometheus
	s.router.Handle("/metrics", s.recorder.Handler())

	// Arquivos estáticos (opcional, planta e frontend)
	s.router.PathPrefix("/").Handler(http.FileServer(http.Dir("./static")))
}

// wrapWithMiddleware adiciona recuperação de panics, CORS e log de acesso
func (s *Server) wrapWithMiddleware(next http.Handler) http.Handler {
	h := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(logger.IsDebugEnabled()),
	)(next)

	h = handlers.CORS(
		handlers.AllowedOrigins(s.config.Server.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(h)

	if logger.IsDebugEnabled() {
		h = handlers.LoggingHandler(os.Stdout, h)
	}
	return h
}

// recoveryLogger envia os panics capturados para o logger do servidor
type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	logger.Errorf("Panic capturado: %s", fmt.Sprint(v...))
}

// healthHandler responde com o status de saúde do servidor
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	minimapStatus := "ok"
	if s.minimapService == nil || !s.minimapService.IsRunning() {
		minimapStatus = "offline"
	} else if st := s.minimapService.GetStatus().Status; st != "ok" {
		minimapStatus = st
	}

	redisStatus := "disabled"
	if s.config.Redis.Enabled {
		redisStatus = "ok"
		if s.redisService == nil || !s.redisService.IsConnected() {
			redisStatus = "offline"
		}
	}

	plcStatus := "disabled"
	if s.config.PLC.Enabled {
		plcStatus = "offline"
		if s.plcService != nil && s.plcService.IsRunning() {
			plcStatus = "ok"
		}
	}

	mqttStatus := "disabled"
	if s.config.MQTT.Enabled {
		mqttStatus = "offline"
		if s.mqttBridge != nil && s.mqttBridge.IsRunning() {
			mqttStatus = "ok"
		}
	}

	discoveryStatus := "disabled"
	if s.config.Discovery.Enabled {
		discoveryStatus = "offline"
		if s.discoveryService != nil && s.discoveryService.IsRunning() {
			discoveryStatus = "ok"
		}
	}

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"services": map[string]string{
			"minimap":   minimapStatus,
			"redis":     redisStatus,
			"mqtt":      mqttStatus,
			"plc":       plcStatus,
			"websocket": "ok",
			"discovery": discoveryStatus,
		},
	}

	// Se algum serviço crítico estiver fora, alterar status geral
	if minimapStatus != "ok" || redisStatus == "offline" {
		response["status"] = "degraded"
	}

	json.NewEncoder(w).Encode(response)
}

// infoHandler retorna informações básicas sobre o servidor
func (s *Server) infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	info := s.GetServerInfo()
	uptime := time.Since(info.StartTime).Round(time.Second)

	response := map[string]interface{}{
		"name":        s.config.Discovery.ServiceName,
		"version":     info.Version,
		"ip":          info.IP,
		"port":        info.Port,
		"websocket":   info.WebSocketURL,
		"api":         info.APIURL,
		"startTime":   info.StartTime,
		"uptime":      uptime.String(),
		"connections": info.Connections,
		"sensors":     len(s.config.Card.Sensors),
	}

	json.NewEncoder(w).Encode(response)
}

// serverInfoHandler retorna informações completas sobre o servidor
func (s *Server) serverInfoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	info := s.GetServerInfo()
	uptime := time.Since(info.StartTime).Round(time.Second)

	status := s.minimapService.GetStatus()

	response := map[string]interface{}{
		"server": map[string]interface{}{
			"name":        s.config.Discovery.ServiceName,
			"version":     info.Version,
			"ip":          info.IP,
			"port":        info.Port,
			"websocket":   info.WebSocketURL,
			"api":         info.APIURL,
			"startTime":   info.StartTime,
			"uptime":      uptime.String(),
			"connections": info.Connections,
		},
		"discovery": map[string]interface{}{
			"enabled":      s.config.Discovery.Enabled,
			"running":      s.discoveryService.IsRunning(),
			"instanceName": s.discoveryService.GetInstanceName(),
			"serviceType":  s.discoveryService.ServiceType(),
		},
		"services": map[string]interface{}{
			"minimap": map[string]interface{}{
				"running":  s.minimapService.IsRunning(),
				"status":   status.Status,
				"renders":  status.Renders,
				"skipped":  status.Skipped,
				"sensors":  status.SensorCount,
				"interval": s.config.Card.RefreshInterval,
			},
			"redis": map[string]interface{}{
				"enabled":   s.config.Redis.Enabled,
				"connected": s.redisService.IsConnected(),
				"host":      s.config.Redis.Host,
				"port":      s.config.Redis.Port,
				"channel":   s.redisService.Channel(),
			},
			"mqtt": map[string]interface{}{
				"enabled":   s.config.MQTT.Enabled,
				"connected": s.mqttBridge != nil && s.mqttBridge.IsRunning(),
				"broker":    s.config.MQTT.Broker,
				"topic":     s.config.MQTT.BaseTopic,
			},
			"plc": map[string]interface{}{
				"enabled": s.config.PLC.Enabled,
				"running": s.plcService != nil && s.plcService.IsRunning(),
				"host":    s.config.PLC.Host,
				"db":      s.config.PLC.DBNumber,
			},
		},
	}

	json.NewEncoder(w).Encode(response)
}

// discoverHandler fornece informações para descoberta manual
func (s *Server) discoverHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	info := s.GetServerInfo()

	response := map[string]interface{}{
		"name":        s.config.Discovery.ServiceName,
		"ip":          info.IP,
		"port":        info.Port,
		"wsUrl":       info.WebSocketURL,
		"apiUrl":      info.APIURL,
		"version":     info.Version,
		"wsEndpoint":  "/ws",
		"apiEndpoint": "/api",
		"svgEndpoint": "/api/scene.svg",
	}

	json.NewEncoder(w).Encode(response)
}
