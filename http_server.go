package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// HTTPServer exposes the receipt pipeline to the UI shell over localhost.
type HTTPServer struct {
	logger     *slog.Logger
	httpServer *http.Server
	receipts   *ReceiptService
}

// NewHTTPServer creates a new HTTP server for the given receipt service.
func NewHTTPServer(receipts *ReceiptService, logger *slog.Logger) *HTTPServer {
	return &HTTPServer{
		logger:   logger,
		receipts: receipts,
	}
}

// Start serves the API on addr until the context is cancelled.
func (s *HTTPServer) Start(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}

	go func() {
		s.logger.Info("HTTP server listening", "addr", "http://"+addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	return nil
}

// Stop gracefully shuts down the server.
func (s *HTTPServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", "error", err)
		}
		s.logger.Info("HTTP server stopped")
	}
}

func (s *HTTPServer) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/scan", s.handleScan).Methods(http.MethodPost)
	r.HandleFunc("/receipts", s.handleListReceipts).Methods(http.MethodGet)
	r.HandleFunc("/receipts", s.handleDeleteAllReceipts).Methods(http.MethodDelete)
	r.HandleFunc("/receipts/{id}", s.handleGetReceipt).Methods(http.MethodGet)
	r.HandleFunc("/receipts/{id}", s.handleDeleteReceipt).Methods(http.MethodDelete)
	r.HandleFunc("/receipts/{id}/retry", s.handleRetry).Methods(http.MethodPost)
	r.HandleFunc("/stores", s.handleStoreNames).Methods(http.MethodGet)
	return s.corsMiddleware(r)
}

// corsMiddleware adds CORS headers to all responses. The UI shell runs in a
// local web view on a different origin.
func (s *HTTPServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Allow-Methods", "*")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// scanRequest is a scanned code plus the duplicate-save confirmation flag.
type scanRequest struct {
	ScannedCode
	ConfirmDuplicate bool `json:"confirmDuplicate"`
}

func (s *HTTPServer) handleScan(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	defer r.Body.Close()

	var req scanRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid scan payload")
		return
	}

	outcome, err := s.receipts.Retrieve(r.Context(), req.ScannedCode, req.ConfirmDuplicate)

	var dup *DuplicateError
	switch {
	case errors.As(err, &dup):
		s.writeJSON(w, http.StatusConflict, map[string]any{
			"message":  dup.Error(),
			"existing": dup.Existing,
		})
	case errors.Is(err, ErrInvalidCode):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.logger.Error("Scan failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.writeJSON(w, http.StatusOK, outcome)
	}
}

func (s *HTTPServer) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.receipts.Receipts(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if receipts == nil {
		receipts = []Receipt{}
	}
	s.writeJSON(w, http.StatusOK, receipts)
}

func (s *HTTPServer) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.receipts.Receipt(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, ErrReceiptNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, receipt)
}

func (s *HTTPServer) handleRetry(w http.ResponseWriter, r *http.Request) {
	ok, err := s.receipts.RetryRetrieve(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, ErrReceiptNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"retrieved": ok})
}

func (s *HTTPServer) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	err := s.receipts.DeleteReceipt(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, ErrReceiptNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleDeleteAllReceipts(w http.ResponseWriter, r *http.Request) {
	if err := s.receipts.DeleteAllReceipts(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleStoreNames(w http.ResponseWriter, r *http.Request) {
	names, err := s.receipts.StoreNames(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if names == nil {
		names = []string{}
	}
	s.writeJSON(w, http.StatusOK, names)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.receipts.Receipts(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"receipts": len(receipts),
	})
}

// writeJSON writes a JSON response with the given status.
func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"message": message})
}
