package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"infrachat/app/usecase"
	"infrachat/internal/domain/entity"
	"infrachat/internal/infrastructure/metrics"
)

const (
	detailInvalidCode  = "Failed to generate valid Terraform"
	detailEmptyQuery   = "Query must not be empty"
	detailBodyTooLarge = "Request body too large"
)

const maxRequestBody = 1 << 20

type InfraHandler struct {
	service   usecase.InfraUsecase
	staticDir string
	logger    *slog.Logger
	upgrader  websocket.Upgrader
}

func NewInfraHandler(service usecase.InfraUsecase, staticDir string, logger *slog.Logger) *InfraHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InfraHandler{
		service:   service,
		staticDir: staticDir,
		logger:    logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// withMetrics records count, latency and errors under the route template, not
// the raw path, so /static/ lookups share one series.
func (h *InfraHandler) withMetrics(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rw, r)

		metrics.ObserveHTTPRequest(r.Method, route, strconv.Itoa(rw.status), time.Since(start), rw.status >= 400)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController and the websocket upgrader reach the
// underlying connection.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (h *InfraHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", h.withMetrics("/", h.handleRoot)).Methods(http.MethodGet)
	r.HandleFunc("/generate", h.withMetrics("/generate", h.handleGenerate)).Methods(http.MethodPost)
	r.HandleFunc("/health", h.withMetrics("/health", h.handleHealth)).Methods(http.MethodGet)
	r.HandleFunc("/ws/generate", h.handleGenerateWS).Methods(http.MethodGet)

	static := http.StripPrefix("/static/", http.FileServer(http.Dir(h.staticDir)))
	r.PathPrefix("/static/").Handler(h.withMetrics("/static/", static.ServeHTTP))

	// Prometheus
	r.Handle("/metrics", promhttp.Handler())
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}

// classify maps a usecase error onto the status code and client-facing detail.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, usecase.ErrEmptyQuery):
		return http.StatusBadRequest, detailEmptyQuery
	case errors.Is(err, usecase.ErrInvalidCode):
		return http.StatusBadRequest, detailInvalidCode
	default:
		return http.StatusInternalServerError, fmt.Sprintf("Generation failed: %v", err)
	}
}

// GET /
func (h *InfraHandler) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Visit /static/index.html for UI"})
}

// POST /generate
func (h *InfraHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req entity.InfraRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, detailBodyTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	resp, err := h.service.Generate(r.Context(), req.Query)
	if err != nil {
		code, detail := classify(err)
		if code >= http.StatusInternalServerError {
			h.logger.Error("generate failed", "err", err)
			metrics.IncError("http", "generate")
		} else {
			h.logger.Warn("generate rejected", "err", err)
		}
		writeError(w, code, detail)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// GET /health
func (h *InfraHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"ok": true,
		"ts": time.Now().UTC(),
	}
	writeJSON(w, http.StatusOK, status)
}

type wsEvent struct {
	Type   string                `json:"type"`
	Stage  entity.Stage          `json:"stage,omitempty"`
	Detail string                `json:"detail,omitempty"`
	Status int                   `json:"status,omitempty"`
	Result *entity.InfraResponse `json:"result,omitempty"`
}

// GET /ws/generate
// One request per connection: the client sends {"query": ...}, the server
// streams progress events and finishes with a result or error event.
func (h *InfraHandler) handleGenerateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxRequestBody)

	var req entity.InfraRequest
	if err := conn.ReadJSON(&req); err != nil {
		h.logger.Warn("websocket read failed", "err", err)
		_ = conn.WriteJSON(wsEvent{
			Type:   "error",
			Status: http.StatusBadRequest,
			Detail: fmt.Sprintf("Invalid request body: %v", err),
		})
		return
	}

	progress := func(stage entity.Stage, detail string) {
		if err := conn.WriteJSON(wsEvent{Type: "progress", Stage: stage, Detail: detail}); err != nil {
			h.logger.Debug("websocket progress write failed", "err", err)
		}
	}

	resp, err := h.service.GenerateWithProgress(r.Context(), req.Query, progress)
	if err != nil {
		code, detail := classify(err)
		if code >= http.StatusInternalServerError {
			h.logger.Error("ws generate failed", "err", err)
			metrics.IncError("websocket", "generate")
		}
		_ = conn.WriteJSON(wsEvent{Type: "error", Status: code, Detail: detail})
		return
	}

	_ = conn.WriteJSON(wsEvent{Type: "result", Result: resp})
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
