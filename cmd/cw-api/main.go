package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"CwndScope/internal/config"
	"CwndScope/internal/query"
	"CwndScope/internal/session"
	"CwndScope/internal/stats"
	"CwndScope/internal/tailer"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	bucketWidth, err := time.ParseDuration(cfg.Stats.BucketWidth)
	if err != nil {
		log.Fatalf("Invalid stats bucket_width: %v", err)
	}

	apiHandler := &APIHandler{
		sessions:  session.NewManager(cfg.Log.RootDir),
		engine:    stats.New(bucketWidth, cfg.Stats.TopN),
		windowCap: cfg.Tailer.WindowCap,
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/query", apiHandler.queryHandler).Methods("POST")
	r.HandleFunc("/api/v1/sessions", apiHandler.sessionsHandler).Methods("GET")

	server := &http.Server{
		Addr:    cfg.API.ListenAddr,
		Handler: r,
	}

	go func() {
		log.Printf("API server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("API server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("API server exited.")
}

// APIHandler holds the dependencies for API handlers.
type APIHandler struct {
	sessions  *session.Manager
	engine    *stats.Engine
	windowCap int
}

// queryRequest selects a log file and the filters to apply to it. An
// empty file means the most recent session.
type queryRequest struct {
	File string `json:"file,omitempty"`
	query.FilterSpec
}

// queryHandler analyzes one log file and returns the statistics summary.
func (h *APIHandler) queryHandler(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}

	logPath, err := h.sessions.Select(req.File)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrNoSessions) {
			status = http.StatusNotFound
		}
		http.Error(w, fmt.Sprintf("failed to select log file: %v", err), status)
		return
	}

	facade := query.New(tailer.New(logPath, h.windowCap), h.engine)
	result, err := facade.Snapshot(req.FilterSpec)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to analyze log: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, result)
}

// sessionsHandler lists the recorded session logs.
func (h *APIHandler) sessionsHandler(w http.ResponseWriter, r *http.Request) {
	infos, err := h.sessions.List()
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to list sessions: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, infos)
}

func writeJSON(w http.ResponseWriter, v any) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(jsonBytes)
}
