package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"minimap_go/internal/config"
	"minimap_go/internal/models"
	"minimap_go/internal/telemetry"
	"minimap_go/pkg/logger"
)

// ErrDisconnected é retornado quando o Redis está desabilitado ou fora do ar
var ErrDisconnected = errors.New("Redis não conectado ou desabilitado")

// Service é a store de estado das entidades no Redis.
// Cada entidade é um hash "<prefix>:<entity_id>" com os campos
// state e unit_of_measurement; mudanças são anunciadas em um canal pub/sub.
type Service struct {
	client    *redis.Client
	ctx       context.Context
	cancel    context.CancelFunc
	prefix    string
	channel   string
	config    config.RedisConfig
	connected bool
	mutex     sync.RWMutex
}

// NewService cria um novo serviço Redis
func NewService(cfg config.RedisConfig) (*Service, error) {
	// Criar contexto cancelável
	ctx, cancel := context.WithCancel(context.Background())

	if !cfg.Enabled {
		logger.Info("Serviço Redis desabilitado por configuração")
		return &Service{
			ctx:    ctx,
			cancel: cancel,
			config: cfg,
			prefix: cfg.Prefix,
		}, nil
	}

	channel := cfg.NotifyChannel
	if channel == "" {
		channel = entityKey(cfg.Prefix, "changed")
	}

	// Criar serviço
	service := &Service{
		client:  newClient(cfg),
		ctx:     ctx,
		cancel:  cancel,
		prefix:  cfg.Prefix,
		channel: channel,
		config:  cfg,
	}

	// Testar conexão
	if err := service.TestConnection(); err != nil {
		logger.Warnf("Aviso: %v. O Redis será utilizado em modo offline.", err)
		return service, nil
	}

	return service, nil
}

// TestConnection testa a conexão com o Redis
func (s *Service) TestConnection() error {
	if !s.config.Enabled || s.client == nil {
		return fmt.Errorf("serviço Redis desabilitado")
	}

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	result, err := s.client.Ping(ctx).Result()
	if err != nil {
		s.setConnected(false)
		return fmt.Errorf("erro ao conectar ao Redis: %w", err)
	}

	logger.Infof("Conexão com o Redis estabelecida em %s:%d. Resposta: %s", s.config.Host, s.config.Port, result)
	s.setConnected(true)
	return nil
}

// IsConnected verifica se o serviço está conectado
func (s *Service) IsConnected() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.connected && s.config.Enabled
}

// Channel retorna o canal pub/sub de notificação
func (s *Service) Channel() string {
	return s.channel
}

func (s *Service) setConnected(v bool) {
	s.mutex.Lock()
	s.connected = v
	s.mutex.Unlock()
}

// ensureConnected tenta reconectar quando a última operação falhou
func (s *Service) ensureConnected(ctx context.Context) error {
	if !s.config.Enabled || s.client == nil {
		return ErrDisconnected
	}
	if s.IsConnected() {
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}

	logger.Info("Conexão com o Redis restabelecida")
	s.setConnected(true)
	return nil
}

// Snapshot lê os hashes das entidades pedidas em uma única pipeline
func (s *Service) Snapshot(ctx context.Context, keys []string) (telemetry.Snapshot, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}

	// Criar uma pipeline para enviar vários comandos de uma vez
	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringStringMapCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.HGetAll(ctx, entityKey(s.prefix, k))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		s.setConnected(false)
		return nil, fmt.Errorf("erro ao ler entidades do Redis: %w", err)
	}

	snap := make(telemetry.Snapshot, len(keys))
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil {
			continue
		}
		if r, ok := decodeReading(fields); ok {
			snap[keys[i]] = r
		}
	}
	return snap, nil
}

// SetState grava a leitura de uma entidade e publica a notificação
func (s *Service) SetState(ctx context.Context, entityID string, r telemetry.Reading) error {
	return s.SetStates(ctx, map[string]telemetry.Reading{entityID: r})
}

// SetStates grava várias leituras e publica uma única notificação
func (s *Service) SetStates(ctx context.Context, readings map[string]telemetry.Reading) error {
	if len(readings) == 0 {
		return nil
	}
	if err := s.ensureConnected(ctx); err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	for id, r := range readings {
		pipe.HSet(ctx, entityKey(s.prefix, id), encodeReading(r))
	}
	pipe.Publish(ctx, s.channel, len(readings))

	// Executa a pipeline
	if _, err := pipe.Exec(ctx); err != nil {
		s.setConnected(false)
		return fmt.Errorf("erro ao escrever entidades no Redis: %w", err)
	}
	return nil
}

// Subscribe chama onChange a cada mensagem no canal de notificação,
// até o contexto ser cancelado. Reassina após quedas de conexão.
func (s *Service) Subscribe(ctx context.Context, onChange func()) {
	if !s.config.Enabled || s.client == nil {
		return
	}

	go func() {
		for {
			s.listen(ctx, onChange)

			select {
			case <-ctx.Done():
				return
			case <-s.ctx.Done():
				return
			case <-time.After(2 * time.Second):
				logger.Debugf("Reassinando canal Redis %s", s.channel)
			}
		}
	}()
}

func (s *Service) listen(ctx context.Context, onChange func()) {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() == nil {
			logger.Warnf("Erro ao assinar canal Redis %s: %v", s.channel, err)
		}
		return
	}
	logger.Infof("Assinado canal de notificação Redis: %s", s.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			onChange()
		}
	}
}

// WriteStatus escreve o status do serviço no Redis
func (s *Service) WriteStatus(status models.ServiceStatus) error {
	if !s.IsConnected() {
		return nil
	}

	fields := map[string]interface{}{
		"status":      status.Status,
		"timestamp":   status.Timestamp.UnixMilli(),
		"renders":     status.Renders,
		"skipped":     status.Skipped,
		"ultimo_erro": status.LastError,
		"erros":       status.ErrorCount,
	}

	if err := s.client.HSet(s.ctx, entityKey(s.prefix, "status"), fields).Err(); err != nil {
		s.setConnected(false)
		return fmt.Errorf("erro ao escrever status no Redis: %w", err)
	}
	return nil
}

// WriteOccupancy grava a quantidade de alvos ativos por sensor
// em "<prefix>:occupancy" (hash sensor -> alvos).
func (s *Service) WriteOccupancy(scene *models.Scene) error {
	if scene == nil || !s.IsConnected() {
		return nil
	}

	fields := make(map[string]interface{}, len(scene.Sensors))
	for _, sensor := range scene.Sensors {
		fields[sensor.ID] = sensor.ActiveTargets
	}
	if len(fields) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	pipe.HSet(s.ctx, entityKey(s.prefix, "occupancy"), fields)
	pipe.Set(s.ctx, entityKey(s.prefix, "fingerprint"), scene.Fingerprint, 0)
	if _, err := pipe.Exec(s.ctx); err != nil {
		s.setConnected(false)
		return fmt.Errorf("erro ao escrever ocupação no Redis: %w", err)
	}
	return nil
}

// Shutdown encerra graciosamente o serviço Redis
func (s *Service) Shutdown() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.cancel()

	if s.client != nil {
		if err := s.client.Close(); err != nil {
			logger.Errorf("Erro ao fechar conexão com Redis: %v", err)
		} else {
			logger.Info("Conexão com o Redis fechada")
		}
	}

	s.connected = false
}
