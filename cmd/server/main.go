package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"minimap_go/internal/config"
	"minimap_go/internal/server"
	"minimap_go/pkg/logger"
)

func main() {
	configPath := pflag.StringP("config", "c", "config.json", "arquivo de configuração JSON")
	logDir := pflag.String("log-dir", "", "diretório para arquivos de log (sobrescreve log.dir)")
	debug := pflag.Bool("debug", false, "habilita log em nível DEBUG")
	pflag.Parse()

	logger.Init()
	defer logger.Sync()

	displayBanner()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("Erro ao carregar configurações", err)
	}

	configureLogging(cfg, *logDir, *debug)

	logger.Info("Iniciando Presence Minimap")
	logger.Infof("Configuração carregada: %d sensores, planta %gx%g, Redis em %s:%d",
		len(cfg.Card.Sensors), cfg.Card.ImageWidth, cfg.Card.ImageHeight, cfg.Redis.Host, cfg.Redis.Port)

	srv, err := server.NewServer(cfg)
	if err != nil {
		logger.Fatal("Erro ao criar servidor", err)
	}

	// Iniciar o servidor em uma goroutine separada
	go func() {
		logger.Infof("Servidor iniciado na porta %d", cfg.Server.Port)
		if err := srv.Start(); err != nil {
			logger.Fatal("Erro ao iniciar o servidor", err)
		}
	}()

	// Configurar captura de sinais para shutdown gracioso
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Desligando servidor...")

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Erro durante o shutdown do servidor", err)
	}

	logger.Info("Servidor encerrado com sucesso")
}

// configureLogging aplica nível e arquivo de log; flags têm precedência
func configureLogging(cfg *config.Config, logDir string, debug bool) {
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("Nível de log inválido %q, usando INFO", cfg.Log.Level)
		level = logger.INFO
	}
	if debug {
		level = logger.DEBUG
	}
	logger.SetLevel(level)

	dir := cfg.Log.Dir
	if logDir != "" {
		dir = logDir
	}
	if dir == "" {
		return
	}
	if err := logger.EnableFileLogging(dir, cfg.Log.FilePrefix); err != nil {
		logger.Error("Erro ao habilitar log em arquivo", err)
	}
}

// displayBanner exibe um banner de inicialização
func displayBanner() {
	banner := `
 ____                                        __  __ _       _
|  _ \ _ __ ___  ___  ___ _ __   ___ ___    |  \/  (_)_ __ (_)_ __ ___   __ _ _ __
| |_) | '__/ _ \/ __|/ _ \ '_ \ / __/ _ \   | |\/| | | '_ \| | '_ ' _ \ / _' | '_ \
|  __/| | |  __/\__ \  __/ | | | (_|  __/   | |  | | | | | | | | | | | | (_| | |_) |
|_|   |_|  \___||___/\___|_| |_|\___\___|   |_|  |_|_|_| |_|_|_| |_| |_|\__,_| .__/
                                                                              |_|   v1.0
 `
	fmt.Println(banner)
	fmt.Printf("Iniciando em %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
}
