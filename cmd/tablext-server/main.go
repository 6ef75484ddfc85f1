// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// tablext-server exposes the extraction pipeline over HTTP: POST a PDF as
// a multipart upload to /extract and receive the detected tables as JSON,
// or /healthz for liveness. The server shape (ServeMux, timeouts, signal-
// driven graceful shutdown) follows the enricher service's health server;
// table extraction delegates to TableProcessor.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	xtract "github.com/pdftables/tablext"
	"github.com/pdftables/tablext/tables"
)

type server struct {
	proc      xtract.TableProcessor
	startedAt time.Time
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	cfg := xtract.NewDefaultTableProcessorConfig()
	s := &server{
		proc:      xtract.NewTableProcessor(cfg),
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/extract", s.handleExtract)

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("tablext-server: shutdown signal received")
		cancel()
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			log.Printf("tablext-server: shutdown error: %v", err)
		}
	}()

	log.Printf("tablext-server: listening on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("tablext-server: %v", err)
	}
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"uptime": time.Since(s.startedAt).String(),
	})
}

// extractResponse is the JSON payload returned by /extract.
type extractResponse struct {
	Filename   string         `json:"filename"`
	TableCount int            `json:"table_count"`
	Tables     []tables.Table `json:"tables"`
}

const maxUploadBytes = 64 << 20 // 64 MiB

func (s *server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, fmt.Sprintf("invalid multipart upload: %v", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing form field \"file\"", http.StatusBadRequest)
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "tablext-upload-*.pdf")
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		http.Error(w, fmt.Sprintf("failed to buffer upload: %v", err), http.StatusInternalServerError)
		return
	}
	if err := tmp.Close(); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	got, err := s.proc.ExtractFile(r.Context(), tmpPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("extraction failed: %v", err), http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, http.StatusOK, extractResponse{
		Filename:   filepath.Base(header.Filename),
		TableCount: len(got),
		Tables:     got,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("tablext-server: failed to encode response: %v", err)
	}
}
