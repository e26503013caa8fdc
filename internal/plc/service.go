package plc

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"minimap_go/internal/config"
	"minimap_go/internal/models"
	"minimap_go/pkg/logger"
)

// Layout do DB de ocupação: um INT por sensor na ordem da configuração
// (offset i*2), seguido de um INT com o total de alvos ativos.
const wordSize = 2

// PLCService exporta a ocupação de cada sensor para um DB do PLC
type PLCService struct {
	client   blockWriter
	config   config.PLCConfig
	sensors  []string
	ctx      context.Context
	cancel   context.CancelFunc
	mutex    sync.RWMutex
	running  bool
	pending  []byte
	lastSent []byte
}

// NewPLCService cria um novo serviço de PLC para os sensores informados
func NewPLCService(cfg config.PLCConfig, sensorIDs []string) *PLCService {
	return newPLCService(cfg, sensorIDs, NewS7Client(cfg))
}

func newPLCService(cfg config.PLCConfig, sensorIDs []string, client blockWriter) *PLCService {
	ctx, cancel := context.WithCancel(context.Background())
	if cfg.UpdateRate <= 0 {
		cfg.UpdateRate = 500 * time.Millisecond
	}

	return &PLCService{
		client:  client,
		config:  cfg,
		sensors: append([]string(nil), sensorIDs...),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start inicia o serviço de comunicação com o PLC
func (s *PLCService) Start() error {
	if !s.config.Enabled {
		logger.Info("Serviço PLC desabilitado por configuração")
		return nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return nil
	}

	if err := s.client.Connect(); err != nil {
		return err
	}

	go s.runUpdateLoop()

	s.running = true
	logger.Infof("Serviço PLC iniciado (DB%d, %d sensores)", s.config.DBNumber, len(s.sensors))
	return nil
}

// Stop para o serviço de comunicação com o PLC
func (s *PLCService) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.client.Disconnect()
	s.running = false
	logger.Info("Serviço PLC parado")
}

// IsRunning verifica se o serviço está em execução
func (s *PLCService) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.running
}

// UpdateScene guarda a ocupação da cena para o próximo ciclo de escrita
func (s *PLCService) UpdateScene(scene *models.Scene) {
	if scene == nil || !s.config.Enabled {
		return
	}

	data := EncodeOccupancy(s.sensors, scene)

	s.mutex.Lock()
	s.pending = data
	s.mutex.Unlock()
}

// EncodeOccupancy monta o bloco de INTs (big endian) com os alvos ativos
func EncodeOccupancy(sensorIDs []string, scene *models.Scene) []byte {
	active := make(map[string]int, len(scene.Sensors))
	for _, sensor := range scene.Sensors {
		active[sensor.ID] = sensor.ActiveTargets
	}

	data := make([]byte, (len(sensorIDs)+1)*wordSize)
	total := 0
	for i, id := range sensorIDs {
		n := active[id]
		total += n
		binary.BigEndian.PutUint16(data[i*wordSize:], uint16(clampInt16(n)))
	}
	binary.BigEndian.PutUint16(data[len(sensorIDs)*wordSize:], uint16(clampInt16(total)))
	return data
}

func clampInt16(n int) int16 {
	if n > math.MaxInt16 {
		return math.MaxInt16
	}
	if n < 0 {
		return 0
	}
	return int16(n)
}

// runUpdateLoop escreve a ocupação pendente a cada ciclo
func (s *PLCService) runUpdateLoop() {
	ticker := time.NewTicker(s.config.UpdateRate)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.flush(); err != nil {
				logger.Warnf("Erro ao enviar ocupação para o PLC: %v", err)
			}
		}
	}
}

// flush escreve o bloco pendente se ele mudou desde a última escrita
func (s *PLCService) flush() error {
	s.mutex.RLock()
	data := s.pending
	unchanged := data == nil || bytes.Equal(data, s.lastSent)
	s.mutex.RUnlock()

	if unchanged {
		return nil
	}

	if err := s.client.WriteDataBlock(s.config.DBNumber, 0, data); err != nil {
		return err
	}

	s.mutex.Lock()
	s.lastSent = data
	s.mutex.Unlock()

	logger.Debugf("Ocupação enviada ao PLC (DB%d, %d bytes)", s.config.DBNumber, len(data))
	return nil
}

// Shutdown encerra graciosamente o serviço
func (s *PLCService) Shutdown() {
	s.Stop()
}
