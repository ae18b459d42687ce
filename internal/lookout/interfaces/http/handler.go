// Package http exposes the local monitoring API.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"quest-lookout/internal/journal"
	app "quest-lookout/internal/lookout/application"
	"quest-lookout/internal/report"
	"quest-lookout/internal/settings"
)

// Monitor is the engine surface the handler drives.
type Monitor interface {
	Status() app.Status
	Reload(doc settings.Document) error
}

// Handler provides the local lookout HTTP endpoints.
type Handler struct {
	monitor      Monitor
	settingsPath string
	logger       *log.Logger
}

// NewHandler constructs a handler.
func NewHandler(monitor Monitor, settingsPath string, logger *log.Logger) (*Handler, error) {
	if monitor == nil {
		return nil, errors.New("lookout handler: nil monitor")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{monitor: monitor, settingsPath: settingsPath, logger: logger}, nil
}

// ServeHTTP handles /api/v1/status and /api/v1/reload.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/status":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleStatus(w, r)
	case "/api/v1/reload":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleReload(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.monitor.Status())
}

func (h *Handler) handleReload(w http.ResponseWriter, _ *http.Request) {
	doc, err := settings.Load(h.settingsPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("load settings: %v", err), http.StatusBadRequest)
		return
	}
	if err := h.monitor.Reload(doc); err != nil {
		h.logger.Printf("reload: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "reloaded"})
}

// ReportHandler serves session report downloads.
type ReportHandler struct {
	journal *journal.Journal
	logger  *log.Logger
}

// NewReportHandler constructs a report handler.
func NewReportHandler(j *journal.Journal, logger *log.Logger) (*ReportHandler, error) {
	if j == nil {
		return nil, errors.New("report handler: nil journal")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ReportHandler{journal: j, logger: logger}, nil
}

// ServeHTTP handles GET /api/v1/sessions/{id}/report?format=pdf|xlsx.
func (h *ReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/sessions/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "report" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	sessionID := parts[0]

	session, err := h.journal.GetSession(sessionID)
	if err != nil {
		h.logger.Printf("report: load session %s: %v", sessionID, err)
		http.Error(w, "session lookup failed", http.StatusInternalServerError)
		return
	}
	if session == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	events, err := h.journal.ListEvents(sessionID)
	if err != nil {
		h.logger.Printf("report: list events %s: %v", sessionID, err)
		http.Error(w, "event lookup failed", http.StatusInternalServerError)
		return
	}
	summary := report.Summarize(*session, events)

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "pdf"
	}
	var (
		payload     []byte
		contentType string
		filename    string
	)
	switch format {
	case "pdf":
		payload, err = report.BuildSessionPDF(summary, events)
		contentType = "application/pdf"
		filename = fmt.Sprintf("session-%s.pdf", sessionID)
	case "xlsx":
		payload, err = report.BuildSessionXLSX(summary, events)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = fmt.Sprintf("session-%s.xlsx", sessionID)
	default:
		http.Error(w, "format must be pdf or xlsx", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Printf("report: build %s for %s: %v", format, sessionID, err)
		http.Error(w, "report generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(payload)
}
