package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iabetor/mathspeech/internal/audio"
	"github.com/iabetor/mathspeech/internal/database"
	"github.com/iabetor/mathspeech/internal/extract"
	"github.com/iabetor/mathspeech/internal/logger"
	"github.com/iabetor/mathspeech/internal/playback"
	"github.com/iabetor/mathspeech/internal/preview"
	"github.com/iabetor/mathspeech/internal/tts"
)

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, tts.Voices)
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, tts.Languages)
}

type uploadResponse struct {
	ID            string `json:"id"`
	FileName      string `json:"fileName"`
	Pages         int    `json:"pages"`
	Text          string `json:"text"`
	ProcessedText string `json:"processedText"`
}

func (s *Server) handleUploadPDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "File too large",
				fmt.Sprintf("The PDF must be smaller than %d MB", s.maxUpload>>20))
			return
		}
		respondError(w, http.StatusBadRequest, "Failed to upload PDF", "Missing file field")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		respondError(w, http.StatusBadRequest, "Invalid file type", "Please upload a PDF file")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Failed to upload PDF", err.Error())
		return
	}

	ctx := r.Context()
	ex, err := s.pipeline.Extract(data)
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	doc, err := s.pipeline.Upload(ctx, header.Filename, data, ex)
	if err != nil {
		respondPipelineError(w, err)
		return
	}

	norm := s.pipeline.Normalize(ctx, ex.Text)
	doc.ProcessedText = norm.Text
	if s.db != nil {
		if err := s.db.SetProcessedText(ctx, doc.ID, norm.Text); err != nil {
			logger.Warnf("[api] 保存改写结果失败: %v", err)
		}
	}

	respondJSON(w, http.StatusOK, uploadResponse{
		ID:            doc.ID,
		FileName:      doc.FileName,
		Pages:         doc.PageCount,
		Text:          ex.Text,
		ProcessedText: norm.Text,
	})
}

type processRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleProcessMathText(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request", "Request body must be JSON")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "Invalid request", "text is required")
		return
	}

	norm := s.pipeline.Normalize(r.Context(), req.Text)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"processedText": norm.Text,
		"original":      norm.Original,
		"stages":        norm.Stages,
		"refined":       norm.Refined,
	})
}

// speechRequest 在合成参数之外可指定所属文档，以及是否先做口语化改写。
type speechRequest struct {
	tts.Request
	DocumentID string `json:"documentId"`
	Normalize  bool   `json:"normalize"`
}

func (s *Server) handleTextToSpeech(w http.ResponseWriter, r *http.Request) {
	var req speechRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request", "Request body must be JSON")
		return
	}
	if req.Normalize && strings.TrimSpace(req.Text) != "" {
		req.Text = s.pipeline.Normalize(r.Context(), req.Text).Text
	}

	out, err := s.pipeline.Synthesize(r.Context(), req.Request, req.DocumentID)
	if err != nil {
		respondPipelineError(w, err)
		return
	}

	if id := r.Header.Get(SessionHeader); id != "" {
		s.attach(id, out.Key)
	}

	w.Header().Set("Content-Type", out.Audio.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Audio.Data)))
	w.Header().Set("X-Audio-Key", out.Key)
	w.Header().Set("X-Audio-Duration", strconv.FormatFloat(out.Duration.Seconds(), 'f', 3, 64))
	w.Header().Set("X-Audio-Cached", strconv.FormatBool(out.Cached))
	w.WriteHeader(http.StatusOK)
	w.Write(out.Audio.Data)
}

// attach 把音频挂到会话上，旧音频随之释放；缓存未启用时只记录会话。
func (s *Server) attach(sessionID, key string) {
	slot := s.sessions.Slot(sessionID)
	if s.cache == nil || !s.cache.Acquire(key) {
		slot.Replace(playback.NewResource(key, nil))
		return
	}
	cache := s.cache
	slot.Replace(playback.NewResource(key, func() { cache.Release(key) }))
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Close(chi.URLParam(r, "id")) {
		respondError(w, http.StatusNotFound, "Not found", "Unknown session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readAudio 读取缓存中的音频，失败时已写好响应。
func (s *Server) readAudio(w http.ResponseWriter, key string) ([]byte, bool) {
	if !audio.ValidKey(key) {
		respondError(w, http.StatusBadRequest, "Invalid request", "Malformed audio key")
		return nil, false
	}
	if s.cache == nil {
		respondError(w, http.StatusNotFound, "Not found", "Audio cache is disabled")
		return nil, false
	}
	data, err := s.cache.Read(key)
	if errors.Is(err, audio.ErrNotCached) {
		respondError(w, http.StatusNotFound, "Not found", "Audio is not cached")
		return nil, false
	}
	if err != nil {
		logger.Errorf("[api] 读取音频缓存失败: %v", err)
		respondError(w, http.StatusInternalServerError, "Unexpected error", "Failed to read audio")
		return nil, false
	}
	return data, true
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	data, ok := s.readAudio(w, key)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeContent(w, r, key+".mp3", time.Time{}, bytes.NewReader(data))
}

func (s *Server) handlePeaks(w http.ResponseWriter, r *http.Request) {
	buckets := audio.DefaultPeakBuckets
	if v := r.URL.Query().Get("buckets"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid request", "buckets must be a positive integer")
			return
		}
		buckets = n
	}

	key := chi.URLParam(r, "key")
	data, ok := s.readAudio(w, key)
	if !ok {
		return
	}
	peaks, err := audio.Peaks(data, buckets)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "Error decoding audio", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"key":   key,
		"peaks": peaks,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		respondJSON(w, http.StatusOK, []database.Document{})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	docs, err := s.db.ListDocuments(r.Context(), limit)
	if err != nil {
		logger.Errorf("[api] 查询文档列表失败: %v", err)
		respondError(w, http.StatusInternalServerError, "Unexpected error", "Failed to list documents")
		return
	}
	if docs == nil {
		docs = []database.Document{}
	}
	respondJSON(w, http.StatusOK, docs)
}

// loadDocument 按 URL 中的 id 读取文档，失败时已写好响应。
func (s *Server) loadDocument(w http.ResponseWriter, r *http.Request) (*database.Document, bool) {
	if s.db == nil {
		respondError(w, http.StatusNotFound, "Not found", "Document storage is disabled")
		return nil, false
	}
	doc, err := s.db.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Not found", "Unknown document")
		return nil, false
	}
	if err != nil {
		logger.Errorf("[api] 查询文档失败: %v", err)
		respondError(w, http.StatusInternalServerError, "Unexpected error", "Failed to load document")
		return nil, false
	}
	return doc, true
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	syntheses, err := s.db.ListSyntheses(r.Context(), doc.ID)
	if err != nil {
		logger.Warnf("[api] 查询合成记录失败: %v", err)
	}
	if syntheses == nil {
		syntheses = []database.Synthesis{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"document":  doc,
		"syntheses": syntheses,
	})
}

type highlightResponse struct {
	Page        int            `json:"page"`
	Progress    float64        `json:"progress"`
	Items       []extract.Item `json:"items"`
	Highlighted []int          `json:"highlighted"`
}

func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	current, err1 := parseFloat(q.Get("t"))
	total, err2 := parseFloat(q.Get("d"))
	if err1 != nil || err2 != nil {
		respondError(w, http.StatusBadRequest, "Invalid request", "t and d must be finite numbers")
		return
	}
	page := 1
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request", "page must be an integer")
			return
		}
		page = n
	}

	doc, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	if doc.PDFPath == "" {
		respondError(w, http.StatusNotFound, "Not found", "The original PDF was not kept")
		return
	}
	data, err := os.ReadFile(doc.PDFPath)
	if err != nil {
		logger.Errorf("[api] 读取 PDF 失败: %v", err)
		respondError(w, http.StatusNotFound, "Not found", "The original PDF is missing")
		return
	}

	items, err := extract.PreviewItems(data, page)
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	if items == nil {
		items = []extract.Item{}
	}
	respondJSON(w, http.StatusOK, highlightResponse{
		Page:        page,
		Progress:    preview.Progress(current, total),
		Items:       items,
		Highlighted: preview.Highlight(items, current, total),
	})
}

// parseFloat 把空字符串视为 0，拒绝 NaN 和 ±Inf。
func parseFloat(v string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", v)
	}
	return f, nil
}
