package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cast"

	"minimap_go/internal/models"
)

// ErrNoSensors é retornado quando a lista de sensores está vazia
var ErrNoSensors = errors.New("nenhum sensor configurado: adicione ao menos um sensor à lista \"sensors\"")

// Config representa a configuração completa da aplicação
type Config struct {
	Server    ServerConfig    `json:"server"`
	Redis     RedisConfig     `json:"redis"`
	MQTT      MQTTConfig      `json:"mqtt"`
	PLC       PLCConfig       `json:"plc"`
	Discovery DiscoveryConfig `json:"discovery"`
	Log       LogConfig       `json:"log"`
	Card      CardConfig      `json:"card"`
}

// ServerConfig contém configurações do servidor HTTP/WebSocket
type ServerConfig struct {
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"readTimeout"`
	WriteTimeout    time.Duration `json:"writeTimeout"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout"`
	AllowedOrigins  []string      `json:"allowedOrigins"`
}

// RedisConfig contém configurações do Redis (store de estado das entidades)
type RedisConfig struct {
	Host          string `json:"host"`
	Port          int    `json:"port"`
	Password      string `json:"password"`
	DB            int    `json:"db"`
	Prefix        string `json:"prefix"`
	NotifyChannel string `json:"notifyChannel"`
	Enabled       bool   `json:"enabled"`
}

// MQTTConfig contém configurações da ponte MQTT (estados publicados pelos sensores)
type MQTTConfig struct {
	Enabled   bool          `json:"enabled"`
	Broker    string        `json:"broker"`
	ClientID  string        `json:"clientId"`
	Username  string        `json:"username"`
	Password  string        `json:"password"`
	BaseTopic string        `json:"baseTopic"`
	QoS       byte          `json:"qos"`
	Timeout   time.Duration `json:"timeout"`
}

// PLCConfig contém configurações para exportar a ocupação para um PLC S7
type PLCConfig struct {
	Enabled      bool          `json:"enabled"`
	Host         string        `json:"host"`
	Rack         int           `json:"rack"`
	Slot         int           `json:"slot"`
	DBNumber     int           `json:"dbNumber"`
	UpdateRate   time.Duration `json:"updateRate"`
	ReadTimeout  time.Duration `json:"readTimeout"`
	WriteTimeout time.Duration `json:"writeTimeout"`
}

// DiscoveryConfig contém configurações do anúncio mDNS
type DiscoveryConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
	ServiceType string `json:"serviceType"`
	Domain      string `json:"domain"`
}

// LogConfig contém configurações de log
type LogConfig struct {
	Level      string `json:"level"`
	Dir        string `json:"dir"`
	FilePrefix string `json:"filePrefix"`
}

// CardConfig segue o esquema do card de dashboard (chaves snake_case)
type CardConfig struct {
	Title              string              `json:"title,omitempty"`
	Image              string              `json:"image"`
	ImageWidth         float64             `json:"image_width"`
	ImageHeight        float64             `json:"image_height"`
	CardHeight         int                 `json:"card_height,omitempty"`
	RefreshInterval    float64             `json:"refresh_interval"` // segundos, 0 desabilita
	ShowTargets        bool                `json:"show_targets"`
	ShowCoverage       bool                `json:"show_coverage"`
	ShowZones          bool                `json:"show_zones"`
	ShowOccupancyMasks bool                `json:"show_occupancy_masks"`
	ShowSensorIcons    bool                `json:"show_sensor_icons"`
	ShowLabels         bool                `json:"show_labels"`
	TargetSize         float64             `json:"target_size"`
	MirrorX            bool                `json:"mirror_x,omitempty"`
	MirrorY            bool                `json:"mirror_y,omitempty"`
	CoverageColor      *models.ColorSpec   `json:"coverage_color,omitempty"`
	ZoneColors         []*models.ColorSpec `json:"zone_colors,omitempty"`
	MaskColor          *models.ColorSpec   `json:"mask_color,omitempty"`
	Sensors            []SensorConfig      `json:"sensors"`
}

// SensorConfig descreve a montagem de um sensor na planta
type SensorConfig struct {
	ID            string              `json:"id"`
	Name          string              `json:"name,omitempty"`
	X             float64             `json:"x"`
	Y             float64             `json:"y"`
	Rotation      float64             `json:"rotation,omitempty"`
	Scale         float64             `json:"scale,omitempty"`
	MirrorX       *bool               `json:"mirror_x,omitempty"`
	MirrorY       *bool               `json:"mirror_y,omitempty"`
	Color         string              `json:"color,omitempty"`
	CoverageColor *models.ColorSpec   `json:"coverage_color,omitempty"`
	ZoneColors    []*models.ColorSpec `json:"zone_colors,omitempty"`
	MaskColor     *models.ColorSpec   `json:"mask_color,omitempty"`
}

// Load carrega a configuração do arquivo (se existir) sobre os valores padrão
func Load(path string) (*Config, error) {
	config := getDefaultConfig()

	// Verificar se existe um arquivo de configuração
	if _, err := os.Stat(path); err == nil {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("erro ao abrir %s: %w", path, err)
		}
		defer file.Close()

		decoder := json.NewDecoder(file)
		if err := decoder.Decode(&config); err != nil {
			return nil, fmt.Errorf("erro ao decodificar %s: %w", path, err)
		}
	}

	// Sobrescrever com variáveis de ambiente, se existirem
	if err := applyEnvironmentOverrides(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// applyEnvironmentOverrides sobrescreve configurações com variáveis de ambiente
func applyEnvironmentOverrides(config *Config) error {
	var err error

	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		v, ok := os.LookupEnv(name)
		if !ok || err != nil {
			return
		}
		n, convErr := cast.ToIntE(v)
		if convErr != nil {
			err = fmt.Errorf("variável %s inválida: %w", name, convErr)
			return
		}
		*dst = n
	}
	flag := func(name string, dst *bool) {
		v, ok := os.LookupEnv(name)
		if !ok || err != nil {
			return
		}
		b, convErr := cast.ToBoolE(v)
		if convErr != nil {
			err = fmt.Errorf("variável %s inválida: %w", name, convErr)
			return
		}
		*dst = b
	}

	num("MINIMAP_SERVER_PORT", &config.Server.Port)
	str("MINIMAP_REDIS_HOST", &config.Redis.Host)
	num("MINIMAP_REDIS_PORT", &config.Redis.Port)
	str("MINIMAP_REDIS_PASSWORD", &config.Redis.Password)
	flag("MINIMAP_REDIS_ENABLED", &config.Redis.Enabled)
	str("MINIMAP_MQTT_BROKER", &config.MQTT.Broker)
	flag("MINIMAP_MQTT_ENABLED", &config.MQTT.Enabled)
	str("MINIMAP_LOG_LEVEL", &config.Log.Level)

	return err
}

// Validate verifica as condições mínimas para iniciar o serviço
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("porta do servidor inválida: %d", c.Server.Port)
	}
	return c.Card.Validate()
}

// Validate verifica a configuração do card
func (c *CardConfig) Validate() error {
	if len(c.Sensors) == 0 {
		return ErrNoSensors
	}
	if c.ImageWidth <= 0 || c.ImageHeight <= 0 {
		return fmt.Errorf("dimensões da imagem inválidas: %gx%g", c.ImageWidth, c.ImageHeight)
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("refresh_interval negativo: %g", c.RefreshInterval)
	}

	seen := make(map[string]bool, len(c.Sensors))
	for i, s := range c.Sensors {
		if s.ID == "" {
			return fmt.Errorf("sensor %d sem id", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("id de sensor repetido: %s", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

// Refresh retorna o intervalo de atualização forçada (0 = desabilitado)
func (c *CardConfig) Refresh() time.Duration {
	return time.Duration(c.RefreshInterval * float64(time.Second))
}

// Visibility retorna a visibilidade inicial das camadas a partir das chaves show_*
func (c *CardConfig) Visibility() models.LayerSet {
	var s models.LayerSet
	s[models.LayerCoverage] = c.ShowCoverage
	s[models.LayerZones] = c.ShowZones
	s[models.LayerMasks] = c.ShowOccupancyMasks
	s[models.LayerTargets] = c.ShowTargets
	s[models.LayerSensors] = c.ShowSensorIcons
	s[models.LayerLabels] = c.ShowLabels
	return s
}

// DisplayName retorna o nome do sensor, ou o id quando vazio
func (s SensorConfig) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// EffectiveScale retorna a escala, tratando 0 como 1
func (s SensorConfig) EffectiveScale() float64 {
	if s.Scale == 0 {
		return 1
	}
	return s.Scale
}

// Mirrors retorna o espelhamento efetivo, herdando do card quando ausente
func (s SensorConfig) Mirrors(card *CardConfig) (mirrorX, mirrorY bool) {
	mirrorX, mirrorY = card.MirrorX, card.MirrorY
	if s.MirrorX != nil {
		mirrorX = *s.MirrorX
	}
	if s.MirrorY != nil {
		mirrorY = *s.MirrorY
	}
	return mirrorX, mirrorY
}
