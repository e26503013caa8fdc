package discovery

import (
	"fmt"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"

	"minimap_go/internal/config"
	"minimap_go/pkg/logger"
)

// Version é anunciada no registro TXT
const Version = "1.0"

// DiscoveryService anuncia o servidor do minimapa na rede local via mDNS
type DiscoveryService struct {
	server       *zeroconf.Server
	mutex        sync.Mutex
	config       config.DiscoveryConfig
	instanceName string
	port         int
	running      bool
	serverIP     string
}

// NewDiscoveryService cria um novo serviço de descoberta
func NewDiscoveryService(cfg config.DiscoveryConfig, port int) *DiscoveryService {
	// Gerar um nome de instância único
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "minimap"
	}

	return &DiscoveryService{
		config:       cfg,
		port:         port,
		instanceName: fmt.Sprintf("%s-minimap", hostname),
	}
}

// TXTRecords retorna os metadados anunciados
func (s *DiscoveryService) TXTRecords(ip string) []string {
	return []string{
		"version=" + Version,
		"ip=" + ip,
		"name=" + s.config.ServiceName,
		"ws=/ws",
		"api=/api",
	}
}

// Start inicia o anúncio mDNS
func (s *DiscoveryService) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.config.Enabled {
		logger.Info("Serviço de descoberta desabilitado por configuração")
		return nil
	}
	if s.running {
		return nil
	}

	// Obter o endereço IP local
	ip, err := LocalIP()
	if err != nil {
		return fmt.Errorf("erro ao obter IP local: %w", err)
	}
	s.serverIP = ip

	server, err := zeroconf.Register(
		s.instanceName,
		s.config.ServiceType,
		s.config.Domain,
		s.port,
		s.TXTRecords(ip),
		nil, // Interfaces de rede (todas)
	)
	if err != nil {
		return fmt.Errorf("erro ao registrar serviço de descoberta: %w", err)
	}

	s.server = server
	s.running = true

	logger.Infof("Serviço de descoberta iniciado em %s:%d (mDNS: %s)", ip, s.port, s.FullName())
	return nil
}

// Stop para o serviço de descoberta
func (s *DiscoveryService) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.running {
		return
	}

	if s.server != nil {
		s.server.Shutdown()
		s.server = nil
	}
	s.running = false

	logger.Info("Serviço de descoberta parado")
}

// FullName retorna "<instância>.<tipo>.<domínio>"
func (s *DiscoveryService) FullName() string {
	return strings.TrimSuffix(fmt.Sprintf("%s.%s.%s", s.instanceName, s.config.ServiceType, s.config.Domain), ".")
}

// GetServerIP retorna o IP do servidor
func (s *DiscoveryService) GetServerIP() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.serverIP
}

// GetPort retorna a porta do servidor
func (s *DiscoveryService) GetPort() int {
	return s.port
}

// GetInstanceName retorna o nome da instância do serviço
func (s *DiscoveryService) GetInstanceName() string {
	return s.instanceName
}

// ServiceType retorna o tipo de serviço anunciado
func (s *DiscoveryService) ServiceType() string {
	return s.config.ServiceType
}

// IsRunning verifica se o serviço está em execução
func (s *DiscoveryService) IsRunning() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running
}

// LocalIP obtém o primeiro endereço IPv4 fora do loopback
func LocalIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}

	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String(), nil
			}
		}
	}

	return "", fmt.Errorf("não foi possível determinar o endereço IP local")
}
