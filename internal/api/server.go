// Package api 提供 PDF 转语音的 HTTP 接口。
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/iabetor/mathspeech/internal/audio"
	"github.com/iabetor/mathspeech/internal/database"
	"github.com/iabetor/mathspeech/internal/logger"
	"github.com/iabetor/mathspeech/internal/pipeline"
	"github.com/iabetor/mathspeech/internal/playback"
)

// SessionHeader 携带播放会话 ID，同一会话的新音频会替换旧音频。
const SessionHeader = "X-Session-ID"

// Options 是 Server 的可选依赖，nil 的组件对应的接口返回 404 或不做持久化。
// AllowedOrigins 为空或包含 "*" 时允许任意来源，但不允许携带凭据。
type Options struct {
	DB             *database.DB
	Cache          *audio.Cache
	Sessions       *playback.Registry
	AllowedOrigins []string
	MaxUploadBytes int64
}

type Server struct {
	router    *chi.Mux
	pipeline  *pipeline.Pipeline
	db        *database.DB
	cache     *audio.Cache
	sessions  *playback.Registry
	origins   []string
	maxUpload int64
}

func NewServer(p *pipeline.Pipeline, opts Options) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		pipeline:  p,
		db:        opts.DB,
		cache:     opts.Cache,
		sessions:  opts.Sessions,
		origins:   opts.AllowedOrigins,
		maxUpload: opts.MaxUploadBytes,
	}
	if s.maxUpload <= 0 {
		s.maxUpload = 10 << 20
	}
	if s.sessions == nil {
		s.sessions = playback.NewRegistry(0)
	}


	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", SessionHeader},
		ExposedHeaders:   []string{"X-Audio-Key", "X-Audio-Duration", "X-Audio-Cached"},
		AllowCredentials: allowCredentials(s.origins),
	}))

	s.router.Get("/", s.handleRoot)
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/voices", s.handleVoices)
		r.Get("/languages", s.handleLanguages)

		r.Post("/upload-pdf", s.handleUploadPDF)
		r.Post("/process-math-text", s.handleProcessMathText)
		r.Post("/text-to-speech", s.handleTextToSpeech)

		r.Get("/audio/{key}", s.handleAudio)
		r.Get("/audio/{key}/peaks", s.handlePeaks)

		r.Get("/documents", s.handleListDocuments)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Get("/documents/{id}/highlight", s.handleHighlight)

		r.Delete("/sessions/{id}", s.handleCloseSession)
	})
}

// allowCredentials 只在显式列出来源时允许携带凭据，通配符下不允许。
func allowCredentials(origins []string) bool {
	if len(origins) == 0 {
		return false
	}
	for _, o := range origins {
		if o == "*" {
			return false
		}
	}
	return true
}

func (s *Server) Router() http.Handler {
	return s.router
}

// requestLogger 用 zap 记录每个请求的方法、路径、状态码和耗时。
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Z.Info("[api] request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "PDF to Audio API is running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

// errorBody 同时提供 error 字段和面向用户的标题与描述。
type errorBody struct {
	Error       string `json:"error"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func respondError(w http.ResponseWriter, status int, title, description string) {
	respondJSON(w, status, errorBody{Error: title, Title: title, Description: description})
}

// respondPipelineError 按失败分类选择状态码。
func respondPipelineError(w http.ResponseWriter, err error) {
	pe := pipeline.Classify(err)
	status := http.StatusInternalServerError
	switch pe.Kind {
	case pipeline.KindInvalidInput:
		status = http.StatusBadRequest
	case pipeline.KindExtraction:
		status = http.StatusUnprocessableEntity
	case pipeline.KindSynthesis:
		status = http.StatusBadGateway
	}
	if status >= 500 {
		logger.Errorf("[api] %v", pe)
	} else {
		logger.Warnf("[api] %v", pe)
	}
	respondError(w, status, pe.Title, pe.Detail)
}
