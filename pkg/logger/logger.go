package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level representa o nível de log
type Level int

const (
	// DEBUG nível para mensagens detalhadas de depuração
	DEBUG Level = iota
	// INFO nível para informações gerais
	INFO
	// WARN nível para avisos
	WARN
	// ERROR nível para erros
	ERROR
	// FATAL nível para erros fatais (encerra o programa)
	FATAL
)

// Formato de timestamp da saída de terminal
const timeFormat = "2006-01-02 15:04:05.000"

var (
	mu sync.Mutex

	// Nível compartilhado por todos os cores
	atomicLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	// Até Init ser chamado o logger descarta tudo (útil nos testes)
	base  = zap.NewNop()
	sugar = base.Sugar()

	consoleCore zapcore.Core
	fileOutput  *os.File

	initialized = false
)

// Init inicializa o logger com saída colorida no terminal
func Init() {
	mu.Lock()
	defer mu.Unlock()

	if initialized {
		return
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(timeFormat)
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleCore = zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stdout), atomicLevel)
	rebuild(consoleCore)

	initialized = true
}

// rebuild recria o logger base a partir dos cores informados
func rebuild(cores ...zapcore.Core) {
	base = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	sugar = base.Sugar()
}

// SetLevel define o nível mínimo de log
func SetLevel(level Level) {
	atomicLevel.SetLevel(toZapLevel(level))
}

// GetLevel retorna o nível atual de log
func GetLevel() Level {
	switch atomicLevel.Level() {
	case zapcore.DebugLevel:
		return DEBUG
	case zapcore.WarnLevel:
		return WARN
	case zapcore.ErrorLevel:
		return ERROR
	case zapcore.FatalLevel:
		return FATAL
	default:
		return INFO
	}
}

// ParseLevel converte o nome de um nível ("debug", "info", ...) em Level
func ParseLevel(name string) (Level, error) {
	var zl zapcore.Level
	if err := zl.UnmarshalText([]byte(name)); err != nil {
		return INFO, fmt.Errorf("nível de log inválido %q: %w", name, err)
	}

	switch zl {
	case zapcore.DebugLevel:
		return DEBUG, nil
	case zapcore.InfoLevel:
		return INFO, nil
	case zapcore.WarnLevel:
		return WARN, nil
	case zapcore.ErrorLevel:
		return ERROR, nil
	default:
		return FATAL, nil
	}
}

// IsDebugEnabled verifica se o nível de debug está habilitado
func IsDebugEnabled() bool {
	return atomicLevel.Enabled(zapcore.DebugLevel)
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	case FATAL:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// EnableFileLogging habilita o log em JSON para arquivo, além do terminal
func EnableFileLogging(logDir, prefix string) error {
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("erro ao criar diretório de log: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	if prefix != "" {
		prefix = prefix + "_"
	}

	logFilePath := filepath.Join(logDir, fmt.Sprintf("%s%s.log", prefix, timestamp))
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("erro ao criar arquivo de log: %w", err)
	}

	if fileOutput != nil {
		fileOutput.Close()
	}
	fileOutput = logFile

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(logFile),
		atomicLevel,
	)

	if consoleCore != nil {
		rebuild(consoleCore, fileCore)
	} else {
		rebuild(fileCore)
	}

	sugar.Infof("Logging em arquivo iniciado: %s", logFilePath)
	return nil
}

// Sync descarrega buffers e fecha o arquivo de log
func Sync() {
	mu.Lock()
	defer mu.Unlock()

	_ = base.Sync()

	if fileOutput != nil {
		fileOutput.Close()
		fileOutput = nil
	}
}

// With retorna um logger estruturado com campos fixos para um componente
func With(keysAndValues ...interface{}) *zap.SugaredLogger {
	return base.WithOptions(zap.AddCallerSkip(-1)).Sugar().With(keysAndValues...)
}

// Debug escreve mensagem de log com nível DEBUG
func Debug(msg string) {
	sugar.Debug(msg)
}

// Debugf escreve mensagem de log formatada com nível DEBUG
func Debugf(format string, args ...interface{}) {
	sugar.Debugf(format, args...)
}

// Info escreve mensagem de log com nível INFO
func Info(msg string) {
	sugar.Info(msg)
}

// Infof escreve mensagem de log formatada com nível INFO
func Infof(format string, args ...interface{}) {
	sugar.Infof(format, args...)
}

// Warn escreve mensagem de log com nível WARN
func Warn(msg string) {
	sugar.Warn(msg)
}

// Warnf escreve mensagem de log formatada com nível WARN
func Warnf(format string, args ...interface{}) {
	sugar.Warnf(format, args...)
}

// Error escreve mensagem de log com nível ERROR
func Error(msg string, err error) {
	if err != nil {
		sugar.Errorw(msg, zap.Error(err))
		return
	}
	sugar.Error(msg)
}

// Errorf escreve mensagem de log formatada com nível ERROR
func Errorf(format string, args ...interface{}) {
	sugar.Errorf(format, args...)
}

// Fatal escreve mensagem de log com nível FATAL e encerra o programa
func Fatal(msg string, err error) {
	if err != nil {
		sugar.Fatalw(msg, zap.Error(err))
		return
	}
	sugar.Fatal(msg)
}

// Fatalf escreve mensagem de log formatada com nível FATAL e encerra o programa
func Fatalf(format string, args ...interface{}) {
	sugar.Fatalf(format, args...)
}
