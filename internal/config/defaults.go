package config

import "time"

// Valores padrão do card
const (
	DefaultImage           = "/local/floor-plan.png"
	DefaultImageWidth      = 12192 // 40' em mm
	DefaultImageHeight     = 10973 // ~36' em mm
	DefaultRefreshInterval = 1
	DefaultTargetSize      = 100
	DefaultSensorColor     = "#4CAF50"
	CardSize               = 6
)

// getDefaultConfig retorna uma configuração padrão
func getDefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Redis: RedisConfig{
			Host:          "localhost",
			Port:          6379,
			Password:      "",
			DB:            0,
			Prefix:        "minimap",
			NotifyChannel: "minimap:changed",
			Enabled:       true,
		},
		MQTT: MQTTConfig{
			Enabled:   false,
			Broker:    "tcp://localhost:1883",
			ClientID:  "presence-minimap",
			BaseTopic: "presence",
			QoS:       0,
			Timeout:   5 * time.Second,
		},
		PLC: PLCConfig{
			Enabled:      false,
			Host:         "192.168.1.100",
			Rack:         0,
			Slot:         1,
			DBNumber:     100,
			UpdateRate:   500 * time.Millisecond,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		Discovery: DiscoveryConfig{
			Enabled:     true,
			ServiceName: "Presence Minimap",
			ServiceType: "_presence-minimap._tcp",
			Domain:      "local.",
		},
		Log: LogConfig{
			Level:      "info",
			FilePrefix: "minimap",
		},
		Card: DefaultCard(),
	}
}

// DefaultCard retorna o card com todos os valores padrão e sem sensores
func DefaultCard() CardConfig {
	return CardConfig{
		Image:              DefaultImage,
		ImageWidth:         DefaultImageWidth,
		ImageHeight:        DefaultImageHeight,
		RefreshInterval:    DefaultRefreshInterval,
		ShowTargets:        true,
		ShowCoverage:       true,
		ShowZones:          true,
		ShowOccupancyMasks: true,
		ShowSensorIcons:    true,
		ShowLabels:         true,
		TargetSize:         DefaultTargetSize,
	}
}

// StubCard retorna a configuração mínima sugerida para um card novo
func StubCard() map[string]interface{} {
	return map[string]interface{}{
		"image":        DefaultImage,
		"image_width":  DefaultImageWidth,
		"image_height": DefaultImageHeight,
		"sensors":      []SensorConfig{},
	}
}
