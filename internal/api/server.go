// Package api exposes the locker subsystem to the kiosk UI and workflow
// layers over HTTP, and records the audit trail of operations it drives.
package api

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"tailscale.com/tsweb"

	"github.com/parcelpoint/lockerd/internal/db"
	"github.com/parcelpoint/lockerd/internal/httputil"
	"github.com/parcelpoint/lockerd/internal/locker"
	"github.com/parcelpoint/lockerd/internal/monitoring"
	"github.com/parcelpoint/lockerd/internal/winnsen"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// LockerController is the operation surface the API needs from the locker
// subsystem.
type LockerController interface {
	Connected() bool
	Station() int
	Unlock(lock int) locker.OperationResult
	UnlockAt(station, lock int) locker.OperationResult
	Status(lock int) locker.OperationResult
	StatusAt(station, lock int) locker.OperationResult
	StatusAll() map[int]locker.OperationResult
	EmergencyUnlockAll() map[int]locker.OperationResult
	TestCommunication() bool
	LogMessages() []string
	ClearLog()
	SubscribeLog() (int, <-chan string)
	UnsubscribeLog(id int)
	SendRaw(frame []byte) ([]byte, error)
}

type Server struct {
	c  LockerController
	db *db.DB
}

func NewServer(c LockerController, database *db.DB) *Server {
	return &Server{c: c, db: database}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/lockers/", s.handleLockerByID)
	mux.HandleFunc("/api/lockers/status", s.handleStatusAll)
	mux.HandleFunc("/api/lockers/emergency-open", s.handleEmergencyOpen)
	mux.HandleFunc("/api/ping", s.handlePing)
	mux.HandleFunc("/api/events", s.handleEvents)
	mux.HandleFunc("/api/serial/configs", s.handleSerialConfigsOrCreate)
	mux.HandleFunc("/api/serial/configs/", s.handleSerialConfigByID)
	mux.HandleFunc("/api/serial/log", s.handleSerialLog)
	mux.HandleFunc("/api/serial/log/clear", s.handleSerialLogClear)
	return mux
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.c.Connected() {
		httputil.ServiceUnavailable(w, "locker bus not connected")
		return
	}
	httputil.WriteJSONOK(w, map[string]bool{"ok": s.c.TestCommunication()})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	events, err := s.db.Events(limit)
	if err != nil {
		httputil.InternalServerError(w, "failed to retrieve events")
		return
	}
	if events == nil {
		events = []db.Event{}
	}
	httputil.WriteJSONOK(w, events)
}

func (s *Server) handleSerialLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string][]string{"messages": s.c.LogMessages()})
}

func (s *Server) handleSerialLogClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	s.c.ClearLog()
	httputil.WriteJSONOK(w, map[string]string{"status": "cleared"})
}

// recordEvent writes one audit row for an operation result. The audit trail is
// the caller's duty, not the controller's, so failures here are logged but do
// not fail the operation response.
func (s *Server) recordEvent(operation string, result locker.OperationResult) {
	if s.db == nil {
		return
	}
	err := s.db.RecordEvent(db.Event{
		ID:             uuid.NewString(),
		Operation:      operation,
		Station:        result.Station,
		Lock:           result.Lock,
		Success:        result.Success,
		Status:         result.StatusName,
		Error:          result.Err,
		ResponseTimeMs: result.ResponseTimeMs,
	})
	if err != nil {
		monitoring.Logf("api: failed to record %s event: %v", operation, err)
	}
}

// AttachAdminRoutes mounts debug endpoints for field diagnosis: the
// controller's diagnostic ring (dump and live SSE tail), a raw frame sender,
// and a manual unlock for maintenance.
func (s *Server) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	debug.HandleFunc("locker-log", "Dump the locker diagnostic log", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, line := range s.c.LogMessages() {
			w.Write([]byte(line + "\n"))
		}
	})

	// SSE feed of diagnostic lines as operations run
	debug.HandleSilentFunc("tail", s.handleLogTail)

	// Raw frame sender for probing board behavior the normal command set
	// does not cover, such as checksum variants.
	debug.HandleSilentFunc("send-frame", s.handleSendFrame)

	debug.HandleSilentFunc("unlock", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		id, err := strconv.Atoi(r.FormValue("id"))
		if err != nil {
			http.Error(w, "Missing or invalid id", http.StatusBadRequest)
			return
		}
		station, lock, err := winnsen.SplitLogicalID(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result := s.c.UnlockAt(station, lock)
		s.recordEvent("unlock", result)
		httputil.WriteJSONOK(w, result)
	})
}

// handleSendFrame writes an arbitrary hex-encoded frame to the bus and
// reports whatever bytes came back within the response window.
func (s *Server) handleSendFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	raw := strings.TrimSpace(r.FormValue("frame"))
	if raw == "" {
		http.Error(w, "Missing frame", http.StatusBadRequest)
		return
	}
	frame, err := hex.DecodeString(strings.ReplaceAll(raw, " ", ""))
	if err != nil {
		http.Error(w, "Invalid hex frame", http.StatusBadRequest)
		return
	}

	reply, err := s.c.SendRaw(frame)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to send frame: %v", err), http.StatusInternalServerError)
		return
	}
	fmt.Fprintf(w, "sent % x\nreceived % x\n", frame, reply)
}

// handleLogTail streams diagnostic lines as Server-Sent Events until the
// client disconnects.
func (s *Server) handleLogTail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	id, c := s.c.SubscribeLog()
	defer s.c.UnsubscribeLog(id)

	w.Write([]byte(": ping\n\n"))
	w.(http.Flusher).Flush()

	for {
		select {
		case line, ok := <-c:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", line); err != nil {
				return
			}
			w.(http.Flusher).Flush()
		case <-r.Context().Done():
			return
		}
	}
}
