package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder agrupa as métricas do serviço em um registry próprio.
// Um *Recorder nil é válido e descarta todas as observações.
type Recorder struct {
	registry *prometheus.Registry

	renders          prometheus.Counter
	skips            prometheus.Counter
	renderDuration   prometheus.Histogram
	layerShapes      *prometheus.GaugeVec
	telemetryErrors  prometheus.Counter
	websocketClients prometheus.Gauge
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// NewRecorder cria e registra as métricas
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		renders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minimap_renders_total",
			Help: "Passadas de renderização executadas.",
		}),
		skips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minimap_render_skips_total",
			Help: "Passadas ignoradas por leituras inalteradas.",
		}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "minimap_render_duration_seconds",
			Help:    "Duração da leitura e composição de uma cena.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		layerShapes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "minimap_layer_shapes",
			Help: "Quantidade de formas por camada na última cena.",
		}, []string{"layer"}),
		telemetryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minimap_telemetry_errors_total",
			Help: "Falhas ao ler a store de telemetria.",
		}),
		websocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "minimap_websocket_clients",
			Help: "Clientes WebSocket conectados.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minimap_http_requests_total",
			Help: "Requisições HTTP por rota e status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "minimap_http_request_duration_seconds",
			Help:    "Duração das requisições HTTP por rota.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.renders,
		r.skips,
		r.renderDuration,
		r.layerShapes,
		r.telemetryErrors,
		r.websocketClients,
		r.httpRequests,
		r.httpDuration,
	)

	return r
}

// Registry retorna o registry usado pelo Recorder
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler expõe as métricas no formato Prometheus
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveRender registra uma passada concluída
func (r *Recorder) ObserveRender(d time.Duration, shapesByLayer map[string]int) {
	if r == nil {
		return
	}
	r.renders.Inc()
	r.renderDuration.Observe(d.Seconds())
	for layer, n := range shapesByLayer {
		r.layerShapes.WithLabelValues(layer).Set(float64(n))
	}
}

// ObserveSkip registra uma passada ignorada pelo gate
func (r *Recorder) ObserveSkip() {
	if r == nil {
		return
	}
	r.skips.Inc()
}

// ObserveTelemetryError registra uma falha de leitura
func (r *Recorder) ObserveTelemetryError() {
	if r == nil {
		return
	}
	r.telemetryErrors.Inc()
}

// SetWebsocketClients atualiza o total de clientes conectados
func (r *Recorder) SetWebsocketClients(n int) {
	if r == nil {
		return
	}
	r.websocketClients.Set(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Hijack repassa para o writer original (necessário para o upgrade WebSocket)
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack não suportado")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Middleware conta requisições por template de rota do mux
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, req)

		route := "unmatched"
		if cur := mux.CurrentRoute(req); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		r.httpRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		r.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
