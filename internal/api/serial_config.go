package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/parcelpoint/lockerd/internal/db"
	"github.com/parcelpoint/lockerd/internal/httputil"
)

func validateSerialConfig(c *db.SerialConfig) string {
	if strings.TrimSpace(c.Name) == "" {
		return "name is required"
	}
	if strings.TrimSpace(c.PortPath) == "" {
		return "port_path is required"
	}
	if c.BaudRate <= 0 {
		return "baud_rate must be positive"
	}
	if c.DataBits != 0 && (c.DataBits < 5 || c.DataBits > 8) {
		return "data_bits must be between 5 and 8"
	}
	if c.StopBits != 0 && c.StopBits != 1 && c.StopBits != 2 {
		return "stop_bits must be 1 or 2"
	}
	switch strings.ToLower(c.Parity) {
	case "", "n", "none", "o", "odd", "e", "even":
	default:
		return "parity must be none, odd, or even"
	}
	return ""
}

// handleSerialConfigsOrCreate routes /api/serial/configs (list all, create).
func (s *Server) handleSerialConfigsOrCreate(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		configs, err := s.db.GetSerialConfigs()
		if err != nil {
			httputil.InternalServerError(w, "failed to retrieve serial configs")
			return
		}
		if configs == nil {
			configs = []db.SerialConfig{}
		}
		httputil.WriteJSONOK(w, configs)
	case http.MethodPost:
		var c db.SerialConfig
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			httputil.BadRequest(w, "invalid JSON body")
			return
		}
		if msg := validateSerialConfig(&c); msg != "" {
			httputil.BadRequest(w, msg)
			return
		}
		if err := s.db.CreateSerialConfig(&c); err != nil {
			httputil.InternalServerError(w, "failed to create serial config")
			return
		}
		created, err := s.db.GetSerialConfig(c.ID)
		if err != nil {
			httputil.InternalServerError(w, "failed to retrieve created config")
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, created)
	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleSerialConfigByID routes /api/serial/configs/{id} (get, update, delete).
func (s *Server) handleSerialConfigByID(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/api/serial/configs/")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		httputil.BadRequest(w, "invalid config ID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		c, err := s.db.GetSerialConfig(id)
		if errors.Is(err, db.ErrConfigNotFound) {
			httputil.NotFound(w, "serial config not found")
			return
		}
		if err != nil {
			httputil.InternalServerError(w, "failed to retrieve serial config")
			return
		}
		httputil.WriteJSONOK(w, c)
	case http.MethodPut:
		var c db.SerialConfig
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			httputil.BadRequest(w, "invalid JSON body")
			return
		}
		c.ID = id
		if msg := validateSerialConfig(&c); msg != "" {
			httputil.BadRequest(w, msg)
			return
		}
		err := s.db.UpdateSerialConfig(&c)
		if errors.Is(err, db.ErrConfigNotFound) {
			httputil.NotFound(w, "serial config not found")
			return
		}
		if err != nil {
			httputil.InternalServerError(w, "failed to update serial config")
			return
		}
		updated, err := s.db.GetSerialConfig(id)
		if err != nil {
			httputil.InternalServerError(w, "failed to retrieve updated config")
			return
		}
		httputil.WriteJSONOK(w, updated)
	case http.MethodDelete:
		err := s.db.DeleteSerialConfig(id)
		if errors.Is(err, db.ErrConfigNotFound) {
			httputil.NotFound(w, "serial config not found")
			return
		}
		if err != nil {
			httputil.InternalServerError(w, "failed to delete serial config")
			return
		}
		httputil.WriteJSONOK(w, map[string]string{"status": "deleted"})
	default:
		httputil.MethodNotAllowed(w)
	}
}
