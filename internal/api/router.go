package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"minimap_go/internal/render"
	"minimap_go/pkg/logger"
)

// Router gerencia as rotas da API
type Router struct {
	handler     *Handler
	basePath    string
	middlewares []Middleware
}

// NewRouter cria um novo router para a API
func NewRouter(service SceneService, renderer render.Renderer, basePath string) *Router {
	handler := NewHandler(service, renderer)

	// Normalizar base path
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	basePath = strings.TrimSuffix(basePath, "/")

	return &Router{
		handler:  handler,
		basePath: basePath,
		middlewares: []Middleware{
			LoggingMiddleware,
			NoCacheMiddleware,
		},
	}
}

// Register registra todas as rotas da API no router informado
func (r *Router) Register(root *mux.Router) {
	api := root
	if r.basePath != "" {
		api = root.PathPrefix(r.basePath).Subrouter()
	}
	api.Use(mux.MiddlewareFunc(Chain(r.middlewares...)))

	r.handle(api, http.MethodGet, "/scene", r.handler.GetScene)
	r.handle(api, http.MethodGet, "/scene.svg", r.handler.GetSceneSVG)
	r.handle(api, http.MethodGet, "/layers", r.handler.GetLayers)
	r.handle(api, http.MethodPost, "/layers/{layer}/toggle", r.handler.ToggleLayer)
	r.handle(api, http.MethodGet, "/card", r.handler.GetCard)
	r.handle(api, http.MethodGet, "/status", r.handler.GetStatus)

	logger.Infof("API configurada com base path: %s", r.basePath)
}

// handle registra a rota para o método informado e responde 405 aos demais
// métodos no mesmo caminho. O ErrMethodMismatch do mux se perde quando uma
// rota posterior do subrouter casa o prefixo, por isso a rota explícita.
func (r *Router) handle(api *mux.Router, method, path string, h http.HandlerFunc) {
	api.HandleFunc(path, h).Methods(method)
	api.Handle(path, r.methodNotAllowed(method))
}

// methodNotAllowed responde 405 com o cabeçalho Allow
func (r *Router) methodNotAllowed(allowed string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Allow", allowed)
		r.handler.respondWithError(w, http.StatusMethodNotAllowed,
			fmt.Sprintf("Método %s não permitido (use %s)", req.Method, allowed))
	})
}

// AddMiddleware adiciona um novo middleware
func (r *Router) AddMiddleware(middleware Middleware) {
	r.middlewares = append(r.middlewares, middleware)
}

// Handler retorna um router isolado só com as rotas da API
func (r *Router) Handler() http.Handler {
	root := mux.NewRouter()
	r.Register(root)
	return root
}
