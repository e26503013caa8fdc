package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/pflag"

	"minimap_go/internal/config"
	"minimap_go/internal/redis"
	"minimap_go/internal/telemetry"
	"minimap_go/pkg/logger"
)

// sink recebe os lotes de leituras simuladas
type sink interface {
	Write(ctx context.Context, readings map[string]telemetry.Reading) error
	Close()
}

func main() {
	configPath := pflag.StringP("config", "c", "config.json", "arquivo de configuração JSON")
	rate := pflag.Duration("rate", 500*time.Millisecond, "intervalo entre atualizações")
	targets := pflag.Int("targets", 2, "alvos ativos por sensor (0-3)")
	sinkName := pflag.String("sink", "redis", "destino das leituras: redis ou mqtt")
	debug := pflag.Bool("debug", false, "habilita log em nível DEBUG")
	pflag.Parse()

	logger.Init()
	defer logger.Sync()
	if *debug {
		logger.SetLevel(logger.DEBUG)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Erro ao carregar configurações", err)
	}

	if *targets < 0 || *targets > telemetry.TargetSlots {
		logger.Fatalf("Quantidade de alvos inválida: %d (deve ser 0-%d)", *targets, telemetry.TargetSlots)
	}

	out, err := openSink(*sinkName, cfg)
	if err != nil {
		logger.Fatal("Erro ao abrir destino das leituras", err)
	}
	defer out.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Entidades estáticas uma única vez
	static := make(map[string]telemetry.Reading)
	for _, sensor := range cfg.Card.Sensors {
		merge(static, staticReadings(sensor.ID))
	}
	if err := out.Write(ctx, static); err != nil {
		logger.Fatal("Erro ao escrever entidades estáticas", err)
	}

	logger.Infof("Simulando %d alvos em %d sensores a cada %v (destino: %s)",
		*targets, len(cfg.Card.Sensors), *rate, *sinkName)
	logger.Info("Pressione Ctrl+C para interromper.")

	// Configura canal para capturar sinais de interrupção
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(*rate)
	defer ticker.Stop()

	start := time.Now()
	consecutiveErrors := 0

	for {
		select {
		case <-sigChan:
			logger.Info("Simulação interrompida pelo usuário.")
			return
		case <-ticker.C:
			elapsed := time.Since(start)
			batch := make(map[string]telemetry.Reading)
			for _, sensor := range cfg.Card.Sensors {
				merge(batch, targetReadings(sensor.ID, *targets, elapsed))
			}

			if err := out.Write(ctx, batch); err != nil {
				consecutiveErrors++
				if consecutiveErrors == 1 || consecutiveErrors%20 == 0 {
					logger.Warnf("Erro ao escrever leituras: %v (tentativa %d)", err, consecutiveErrors)
				}
				continue
			}
			if consecutiveErrors > 0 {
				logger.Infof("Escrita restaurada após %d falhas", consecutiveErrors)
				consecutiveErrors = 0
			}
			logger.Debugf("Lote de %d leituras enviado", len(batch))
		}
	}
}

func openSink(name string, cfg *config.Config) (sink, error) {
	switch name {
	case "redis":
		svc, err := redis.NewService(cfg.Redis)
		if err != nil {
			return nil, err
		}
		if !svc.IsConnected() {
			svc.Shutdown()
			return nil, fmt.Errorf("Redis não disponível em %s:%d", cfg.Redis.Host, cfg.Redis.Port)
		}
		return redisSink{svc}, nil
	case "mqtt":
		return newMQTTSink(cfg.MQTT)
	default:
		return nil, fmt.Errorf("destino desconhecido: %s", name)
	}
}

// redisSink grava o lote em uma pipeline e publica uma notificação
type redisSink struct {
	svc *redis.Service
}

func (r redisSink) Write(ctx context.Context, readings map[string]telemetry.Reading) error {
	return r.svc.SetStates(ctx, readings)
}

func (r redisSink) Close() {
	r.svc.Shutdown()
}

// mqttSink publica cada leitura em "<base>/<domain>/<object_id>/state"
type mqttSink struct {
	client paho.Client
	cfg    config.MQTTConfig
}

func newMQTTSink(cfg config.MQTTConfig) (*mqttSink, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID + "-simulator")
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("tempo esgotado ao conectar ao broker MQTT %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("erro ao conectar ao broker MQTT %s: %w", cfg.Broker, err)
	}
	return &mqttSink{client: client, cfg: cfg}, nil
}

func (m *mqttSink) Write(_ context.Context, readings map[string]telemetry.Reading) error {
	for entityID, r := range readings {
		payload, err := json.Marshal(map[string]string{
			"state":               r.State,
			"unit_of_measurement": r.Unit,
		})
		if err != nil {
			return err
		}

		token := m.client.Publish(stateTopic(m.cfg.BaseTopic, entityID), m.cfg.QoS, false, payload)
		token.Wait()
		if err := token.Error(); err != nil {
			return fmt.Errorf("erro ao publicar %s: %w", entityID, err)
		}
	}
	return nil
}

func (m *mqttSink) Close() {
	m.client.Disconnect(250)
}

// stateTopic converte "<domain>.<object_id>" no tópico de estado
func stateTopic(base, entityID string) string {
	topic := strings.Replace(entityID, ".", "/", 1) + "/state"
	if base == "" {
		return topic
	}
	return base + "/" + topic
}
