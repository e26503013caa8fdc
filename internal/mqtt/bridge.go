package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cast"

	"minimap_go/internal/config"
	"minimap_go/internal/telemetry"
	"minimap_go/pkg/logger"
)

// Bridge assina os tópicos de estado dos sensores e grava cada
// leitura na store de telemetria.
// Tópicos: "<base>/<domain>/<object_id>/state", com domain sensor ou number.
type Bridge struct {
	config  config.MQTTConfig
	writer  telemetry.Writer
	notify  func()
	client  paho.Client
	running bool
	mutex   sync.RWMutex

	received int64
	rejected int64
}

// NewBridge cria a ponte. notify é chamado após cada leitura gravada.
func NewBridge(cfg config.MQTTConfig, writer telemetry.Writer, notify func()) *Bridge {
	if notify == nil {
		notify = func() {}
	}
	return &Bridge{
		config: cfg,
		writer: writer,
		notify: notify,
	}
}

// TopicFilter retorna o filtro de assinatura
func (b *Bridge) TopicFilter() string {
	return b.config.BaseTopic + "/+/+/state"
}

// Start conecta ao broker. A assinatura é refeita a cada reconexão.
func (b *Bridge) Start() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.running {
		return nil
	}

	opts := paho.NewClientOptions().
		AddBroker(b.config.Broker).
		SetClientID(b.config.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(b.config.Timeout).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warnf("Conexão MQTT perdida: %v", err)
		})
	if b.config.Username != "" {
		opts.SetUsername(b.config.Username)
		opts.SetPassword(b.config.Password)
	}

	b.client = paho.NewClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(b.config.Timeout) {
		return fmt.Errorf("tempo esgotado ao conectar ao broker MQTT %s", b.config.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("erro ao conectar ao broker MQTT %s: %w", b.config.Broker, err)
	}

	b.running = true
	logger.Infof("Ponte MQTT conectada a %s", b.config.Broker)
	return nil
}

func (b *Bridge) onConnect(c paho.Client) {
	filter := b.TopicFilter()
	token := c.Subscribe(filter, b.config.QoS, b.handleMessage)
	if token.WaitTimeout(b.config.Timeout) && token.Error() == nil {
		logger.Infof("Assinado tópico MQTT: %s", filter)
		return
	}
	logger.Errorf("Erro ao assinar tópico MQTT %s: %v", filter, token.Error())
}

// Stop desconecta do broker
func (b *Bridge) Stop() {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.running {
		return
	}

	logger.Info("Parando ponte MQTT")
	b.client.Disconnect(250)
	b.running = false
}

// IsRunning verifica se a ponte está conectada
func (b *Bridge) IsRunning() bool {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return b.running && b.client != nil && b.client.IsConnectionOpen()
}

// Stats retorna mensagens aceitas e rejeitadas
func (b *Bridge) Stats() (received, rejected int64) {
	return atomic.LoadInt64(&b.received), atomic.LoadInt64(&b.rejected)
}

func (b *Bridge) handleMessage(_ paho.Client, msg paho.Message) {
	if err := b.ingest(context.Background(), msg.Topic(), msg.Payload()); err != nil {
		logger.Debugf("Mensagem MQTT ignorada (%s): %v", msg.Topic(), err)
	}
}

// ingest converte e grava uma mensagem recebida
func (b *Bridge) ingest(ctx context.Context, topic string, payload []byte) error {
	entityID, err := ParseTopic(b.config.BaseTopic, topic)
	if err != nil {
		atomic.AddInt64(&b.rejected, 1)
		return err
	}

	reading, err := ParsePayload(payload)
	if err != nil {
		atomic.AddInt64(&b.rejected, 1)
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := b.writer.SetState(ctx, entityID, reading); err != nil {
		return fmt.Errorf("erro ao gravar %s: %w", entityID, err)
	}

	atomic.AddInt64(&b.received, 1)
	b.notify()
	return nil
}

// ParseTopic converte "<base>/<domain>/<object_id>/state" em "<domain>.<object_id>"
func ParseTopic(base, topic string) (string, error) {
	rest := topic
	if base != "" {
		if !strings.HasPrefix(topic, base+"/") {
			return "", fmt.Errorf("tópico fora da base %q: %s", base, topic)
		}
		rest = strings.TrimPrefix(topic, base+"/")
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != "state" || parts[1] == "" {
		return "", fmt.Errorf("tópico de estado inválido: %s", topic)
	}

	domain := parts[0]
	if domain != telemetry.DomainSensor && domain != telemetry.DomainNumber {
		return "", fmt.Errorf("domínio não suportado: %s", domain)
	}

	return domain + "." + parts[1], nil
}

// ParsePayload aceita estado simples ("123.4") ou JSON
// {"state": ..., "unit_of_measurement": "..."}.
func ParsePayload(payload []byte) (telemetry.Reading, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || payload[0] != '{' {
		return telemetry.Reading{State: string(payload)}, nil
	}

	var msg struct {
		State interface{} `json:"state"`
		Unit  string      `json:"unit_of_measurement"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return telemetry.Reading{}, fmt.Errorf("payload JSON inválido: %w", err)
	}

	state, err := cast.ToStringE(msg.State)
	if err != nil {
		return telemetry.Reading{}, fmt.Errorf("estado inválido: %w", err)
	}
	return telemetry.Reading{State: state, Unit: msg.Unit}, nil
}
