package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/parcelpoint/lockerd/internal/httputil"
	"github.com/parcelpoint/lockerd/internal/winnsen"
)

// handleLockerByID routes /api/lockers/{id}/open and /api/lockers/{id}/status.
// An ID outside the addressable range is a caller error and is rejected with
// 400 before anything touches the bus.
func (s *Server) handleLockerByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/lockers/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 {
		httputil.NotFound(w, "not found")
		return
	}

	id, err := strconv.Atoi(parts[0])
	if err != nil {
		httputil.BadRequest(w, "invalid locker ID")
		return
	}
	station, lock, err := winnsen.SplitLogicalID(id)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	switch parts[1] {
	case "open":
		if r.Method != http.MethodPost {
			httputil.MethodNotAllowed(w)
			return
		}
		if !s.c.Connected() {
			httputil.ServiceUnavailable(w, "locker bus not connected")
			return
		}
		result := s.c.UnlockAt(station, lock)
		s.recordEvent("unlock", result)
		if !result.Success {
			httputil.WriteJSON(w, http.StatusBadGateway, result)
			return
		}
		httputil.WriteJSONOK(w, result)
	case "status":
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		if !s.c.Connected() {
			httputil.ServiceUnavailable(w, "locker bus not connected")
			return
		}
		result := s.c.StatusAt(station, lock)
		s.recordEvent("status", result)
		if !result.Success {
			httputil.WriteJSON(w, http.StatusBadGateway, result)
			return
		}
		httputil.WriteJSONOK(w, result)
	default:
		httputil.NotFound(w, "not found")
	}
}

// handleStatusAll sweeps every lock on the controller's station.
func (s *Server) handleStatusAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.c.Connected() {
		httputil.ServiceUnavailable(w, "locker bus not connected")
		return
	}
	results := s.c.StatusAll()
	for _, result := range results {
		s.recordEvent("status", result)
	}
	httputil.WriteJSONOK(w, results)
}

// handleEmergencyOpen opens every lock on the controller's station. The sweep
// reports per-lock results and never stops early, so a partial bus fault still
// releases as many doors as possible.
func (s *Server) handleEmergencyOpen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.c.Connected() {
		httputil.ServiceUnavailable(w, "locker bus not connected")
		return
	}
	results := s.c.EmergencyUnlockAll()
	for _, result := range results {
		s.recordEvent("emergency_unlock", result)
	}
	httputil.WriteJSONOK(w, results)
}
