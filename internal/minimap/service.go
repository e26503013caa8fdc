package minimap

import (
	"context"
	"errors"
	"sync"
	"time"

	"minimap_go/internal/config"
	"minimap_go/internal/metrics"
	"minimap_go/internal/models"
	"minimap_go/internal/overlay"
	"minimap_go/internal/telemetry"
	"minimap_go/pkg/logger"
)

// ErrNotRunning é retornado por operações que dependem do loop ativo
var ErrNotRunning = errors.New("serviço do minimapa parado")

// Tempo máximo de uma leitura da store por passada
const defaultFetchTimeout = 2 * time.Second

// SceneHandler recebe cada cena nova (chamado no loop, deve ser rápido)
type SceneHandler func(scene *models.Scene)

// StatusHandler recebe mudanças de status da fonte de telemetria
type StatusHandler func(status models.ServiceStatus)

// LayersHandler recebe a visibilidade após cada alternância de camada
type LayersHandler func(layers models.LayerSet)

type toggleRequest struct {
	layer models.Layer
	reply chan models.LayerSet
}

// Service mantém a cena atual do minimapa.
// Um único goroutine (run) lê a telemetria, decide pelo fingerprint se a
// cena precisa ser refeita e publica o resultado. Tick, push e toggle são
// todos tratados nesse loop, então renderizações nunca se sobrepõem.
type Service struct {
	composer     *overlay.Composer
	source       telemetry.Source
	recorder     *metrics.Recorder
	keys         []string
	interval     time.Duration
	fetchTimeout time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
	mutex   sync.RWMutex

	// protegidos por mutex
	status     models.ServiceStatus
	lastScene  *models.Scene
	visibility models.LayerSet

	sceneHandlers  []SceneHandler
	statusHandlers []StatusHandler
	layersHandlers []LayersHandler
	handlersLock   sync.RWMutex

	// pertencem ao loop
	gate              overlay.Gate
	consecutiveErrors int

	pushCh   chan struct{}
	toggleCh chan toggleRequest
}

// NewService cria o serviço para o card configurado
func NewService(card *config.CardConfig, source telemetry.Source, recorder *metrics.Recorder) *Service {
	composer := overlay.NewComposer(card, overlay.DefaultPalette())

	return &Service{
		composer:     composer,
		source:       source,
		recorder:     recorder,
		keys:         composer.EntityKeys(),
		interval:     card.Refresh(),
		fetchTimeout: defaultFetchTimeout,
		visibility:   card.Visibility(),
		status: models.ServiceStatus{
			Status:      "initializing",
			Timestamp:   time.Now(),
			SensorCount: len(card.Sensors),
		},
		pushCh:   make(chan struct{}, 1),
		toggleCh: make(chan toggleRequest),
	}
}

// Start inicia o loop de renderização
func (s *Service) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.running {
		return nil
	}

	if s.interval > 0 {
		logger.Infof("Iniciando serviço do minimapa (%d entidades, atualização a cada %v)", len(s.keys), s.interval)
	} else {
		logger.Infof("Iniciando serviço do minimapa (%d entidades, atualização periódica desabilitada)", len(s.keys))
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.done = make(chan struct{})
	go s.run()

	s.running = true
	return nil
}

// Stop encerra o loop e aguarda a passada em andamento
func (s *Service) Stop() {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return
	}
	logger.Info("Parando serviço do minimapa")
	s.cancel()
	done := s.done
	s.running = false
	s.mutex.Unlock()

	<-done
}

// IsRunning verifica se o serviço está em execução
func (s *Service) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.running
}

// RegisterSceneHandler registra uma função para receber cenas novas
func (s *Service) RegisterSceneHandler(handler SceneHandler) {
	s.handlersLock.Lock()
	defer s.handlersLock.Unlock()
	s.sceneHandlers = append(s.sceneHandlers, handler)
}

// RegisterStatusHandler registra uma função para receber mudanças de status
func (s *Service) RegisterStatusHandler(handler StatusHandler) {
	s.handlersLock.Lock()
	defer s.handlersLock.Unlock()
	s.statusHandlers = append(s.statusHandlers, handler)
}

// RegisterLayersHandler registra uma função para receber mudanças de visibilidade
func (s *Service) RegisterLayersHandler(handler LayersHandler) {
	s.handlersLock.Lock()
	defer s.handlersLock.Unlock()
	s.layersHandlers = append(s.layersHandlers, handler)
}

// Notify avisa que alguma entidade mudou. Avisos acumulados viram uma passada.
func (s *Service) Notify() {
	select {
	case s.pushCh <- struct{}{}:
	default:
	}
}

// ToggleLayer inverte a visibilidade de uma camada e força uma renderização
func (s *Service) ToggleLayer(ctx context.Context, layer models.Layer) (models.LayerSet, error) {
	if _, err := models.ParseLayer(layer.String()); err != nil {
		return models.LayerSet{}, err
	}

	s.mutex.RLock()
	running, loopCtx := s.running, s.ctx
	s.mutex.RUnlock()
	if !running {
		return models.LayerSet{}, ErrNotRunning
	}

	req := toggleRequest{layer: layer, reply: make(chan models.LayerSet, 1)}
	select {
	case s.toggleCh <- req:
	case <-ctx.Done():
		return models.LayerSet{}, ctx.Err()
	case <-loopCtx.Done():
		return models.LayerSet{}, ErrNotRunning
	}

	select {
	case vis := <-req.reply:
		return vis, nil
	case <-ctx.Done():
		return models.LayerSet{}, ctx.Err()
	}
}

// Layers retorna a visibilidade atual das camadas
func (s *Service) Layers() models.LayerSet {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.visibility
}

// GetScene retorna a última cena publicada (nil antes da primeira)
func (s *Service) GetScene() *models.Scene {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastScene
}

// GetStatus retorna o status atual do serviço
func (s *Service) GetStatus() models.ServiceStatus {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.status
}

// Card retorna a configuração do card
func (s *Service) Card() *config.CardConfig {
	return s.composer.Card()
}

// run é o loop principal do serviço
func (s *Service) run() {
	defer close(s.done)

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	// Primeira cena imediatamente
	s.renderPass()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-tick:
			// Atualização periódica ignora o fingerprint
			s.gate.Reset()
			s.renderPass()
		case <-s.pushCh:
			s.renderPass()
		case req := <-s.toggleCh:
			s.mutex.Lock()
			visible := s.visibility.Toggle(req.layer)
			vis := s.visibility
			s.mutex.Unlock()

			logger.Infof("Camada %s %s", req.layer, visibilityWord(visible))
			s.notifyLayersHandlers(vis)
			s.gate.Reset()
			s.renderPass()
			req.reply <- vis
		}
	}
}

// renderPass lê as entidades e refaz a cena se o fingerprint mudou
func (s *Service) renderPass() {
	start := time.Now()

	ctx, cancel := context.WithTimeout(s.ctx, s.fetchTimeout)
	snap, err := s.source.Snapshot(ctx, s.keys)
	cancel()
	if err != nil {
		if s.ctx.Err() != nil {
			return
		}
		s.handleSourceError(err)
		return
	}

	if s.consecutiveErrors > 0 {
		logger.Infof("Leitura de telemetria restaurada após %d falhas", s.consecutiveErrors)
		s.consecutiveErrors = 0
	}

	fp := overlay.ComputeFingerprint(s.composer.Card(), snap)
	if !s.gate.Check(fp) {
		s.mutex.Lock()
		s.status.Skipped++
		s.mutex.Unlock()
		s.recorder.ObserveSkip()
		return
	}

	s.mutex.RLock()
	vis := s.visibility
	s.mutex.RUnlock()

	scene := s.composer.Compose(snap, vis)
	scene.Fingerprint = fp.String()
	scene.GeneratedAt = time.Now()

	s.mutex.Lock()
	s.lastScene = scene
	s.status.Renders++
	s.status.LastRender = scene.GeneratedAt
	s.mutex.Unlock()

	s.updateStatus("ok", "")

	counts := make(map[string]int, len(scene.Layers))
	for _, l := range scene.Layers {
		counts[l.Layer.String()] = len(l.Shapes)
	}
	s.recorder.ObserveRender(time.Since(start), counts)

	if logger.IsDebugEnabled() {
		logger.Debugf("Cena %s gerada com %d formas em %v", scene.Fingerprint, scene.ShapeCount(), time.Since(start))
	}

	s.notifySceneHandlers(scene)
}

// handleSourceError mantém a última cena e marca o serviço como degradado
func (s *Service) handleSourceError(err error) {
	s.consecutiveErrors++
	s.recorder.ObserveTelemetryError()

	// Evitar inundar o log quando a store fica fora por muito tempo
	if s.consecutiveErrors == 1 || s.consecutiveErrors%30 == 0 {
		logger.Warnf("Erro ao ler telemetria: %v. Tentativa %d", err, s.consecutiveErrors)
	}

	// A próxima leitura bem-sucedida deve renderizar
	s.gate.Reset()
	s.updateStatus("degraded", err.Error())
}

// updateStatus atualiza o status e notifica apenas quando ele muda
func (s *Service) updateStatus(status string, errorMsg string) {
	s.mutex.Lock()
	changed := s.status.Status != status || s.status.LastError != errorMsg
	s.status.Status = status
	s.status.Timestamp = time.Now()
	s.status.LastError = errorMsg
	s.status.ErrorCount = s.consecutiveErrors
	current := s.status
	s.mutex.Unlock()

	if !changed {
		return
	}

	if status != "ok" {
		logger.Warnf("Status do minimapa alterado para %s: %s", status, errorMsg)
	}

	s.handlersLock.RLock()
	handlers := s.statusHandlers
	s.handlersLock.RUnlock()
	for _, handler := range handlers {
		handler(current)
	}
}

// notifySceneHandlers notifica todos os handlers registrados
func (s *Service) notifySceneHandlers(scene *models.Scene) {
	s.handlersLock.RLock()
	handlers := s.sceneHandlers
	s.handlersLock.RUnlock()

	for _, handler := range handlers {
		handler(scene) // Chamada síncrona
	}
}

// notifyLayersHandlers notifica a nova visibilidade
func (s *Service) notifyLayersHandlers(layers models.LayerSet) {
	s.handlersLock.RLock()
	handlers := s.layersHandlers
	s.handlersLock.RUnlock()

	for _, handler := range handlers {
		handler(layers)
	}
}

func visibilityWord(visible bool) string {
	if visible {
		return "visível"
	}
	return "oculta"
}
