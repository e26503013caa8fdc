package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"minimap_go/internal/config"
	"minimap_go/internal/minimap"
	"minimap_go/internal/models"
	"minimap_go/internal/render"
	"minimap_go/pkg/logger"
)

// SceneService é o que a API precisa do serviço do minimapa
type SceneService interface {
	GetScene() *models.Scene
	GetStatus() models.ServiceStatus
	Layers() models.LayerSet
	ToggleLayer(ctx context.Context, layer models.Layer) (models.LayerSet, error)
	Card() *config.CardConfig
}

// Handler contém os handlers HTTP para a API
type Handler struct {
	service  SceneService
	renderer render.Renderer
}

// NewHandler cria um novo handler de API
func NewHandler(service SceneService, renderer render.Renderer) *Handler {
	return &Handler{
		service:  service,
		renderer: renderer,
	}
}

// layerControl descreve um botão de alternância de camada
type layerControl struct {
	Layer     models.Layer `json:"layer"`
	Label     string       `json:"label"`
	ConfigKey string       `json:"configKey"`
	Visible   bool         `json:"visible"`
}

// GetScene retorna a última cena em JSON
func (h *Handler) GetScene(w http.ResponseWriter, r *http.Request) {
	scene := h.service.GetScene()
	if scene == nil {
		h.respondWithError(w, http.StatusServiceUnavailable, "Cena ainda não disponível")
		return
	}

	w.Header().Set("ETag", etag(scene))
	h.respondWithJSON(w, http.StatusOK, scene)
}

// GetSceneSVG retorna a última cena renderizada em SVG
func (h *Handler) GetSceneSVG(w http.ResponseWriter, r *http.Request) {
	scene := h.service.GetScene()
	if scene == nil {
		h.respondWithError(w, http.StatusServiceUnavailable, "Cena ainda não disponível")
		return
	}

	tag := etag(scene)
	if match := r.Header.Get("If-None-Match"); match != "" && match == tag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	// Renderizar em buffer para poder responder com erro
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, scene); err != nil {
		logger.Errorf("Erro ao renderizar cena %s: %v", scene.Fingerprint, err)
		h.respondWithError(w, http.StatusInternalServerError, "Erro ao renderizar cena")
		return
	}

	w.Header().Set("Content-Type", h.renderer.ContentType())
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("ETag", tag)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Debugf("Erro ao enviar SVG: %v", err)
	}
}

// GetLayers retorna a visibilidade das camadas e os controles na ordem da interface
func (h *Handler) GetLayers(w http.ResponseWriter, r *http.Request) {
	layers := h.service.Layers()
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"layers":   layers,
		"controls": controls(layers),
	})
}

// ToggleLayer alterna a visibilidade da camada em /api/layers/{layer}/toggle
func (h *Handler) ToggleLayer(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["layer"]
	layer, err := models.ParseLayer(name)
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	layers, err := h.service.ToggleLayer(ctx, layer)
	switch {
	case errors.Is(err, minimap.ErrNotRunning):
		h.respondWithError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		h.respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Erro ao alternar camada: %v", err))
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"layer":   layer,
		"visible": layers.Visible(layer),
		"layers":  layers,
	})
}

// GetCard retorna as informações de card para o painel
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"size":   config.CardSize,
		"stub":   config.StubCard(),
		"editor": false,
		"config": h.service.Card(),
	})
}

// GetStatus retorna o status atual do serviço
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := h.service.GetStatus()

	response := map[string]interface{}{
		"status":      status.Status,
		"timestamp":   status.Timestamp.UnixNano() / int64(time.Millisecond),
		"renders":     status.Renders,
		"skipped":     status.Skipped,
		"sensorCount": status.SensorCount,
	}

	// Adicionar informações de erro, se houver
	if status.LastError != "" {
		response["lastError"] = status.LastError
	}
	if status.ErrorCount > 0 {
		response["errorCount"] = status.ErrorCount
	}
	if !status.LastRender.IsZero() {
		response["lastRender"] = status.LastRender.UnixNano() / int64(time.Millisecond)
	}

	h.respondWithJSON(w, http.StatusOK, response)
}

func controls(layers models.LayerSet) []layerControl {
	out := make([]layerControl, 0, len(models.ToggleOrder))
	for _, l := range models.ToggleOrder {
		out = append(out, layerControl{
			Layer:     l,
			Label:     l.Label(),
			ConfigKey: l.ConfigKey(),
			Visible:   layers.Visible(l),
		})
	}
	return out
}

// etag combina o fingerprint das leituras com a visibilidade das camadas:
// alternar uma camada refaz a cena sem mudar as leituras
func etag(scene *models.Scene) string {
	var mask uint
	for _, l := range scene.Layers {
		if l.Visible {
			mask |= 1 << uint(l.Layer)
		}
	}
	return fmt.Sprintf(`"%s-%02x"`, scene.Fingerprint, mask)
}

// respondWithError responde com erro em formato JSON
func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON responde com JSON
func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Errorf("Erro ao codificar resposta JSON: %v", err)
		// Se falhar ao codificar JSON, tentar responder com erro simples
		fmt.Fprintf(w, `{"error":"Erro interno ao processar resposta"}`)
	}
}
