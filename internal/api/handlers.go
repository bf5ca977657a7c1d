package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"digiforge-analytics/internal/auth"
	"digiforge-analytics/internal/data"
	"digiforge-analytics/internal/engine"
	"digiforge-analytics/internal/storage"
)

const maxBodyBytes = 1 << 20

// Processor runs one raw telemetry record.
type Processor interface {
	ProcessRecord(ctx context.Context, raw []byte, opts ...engine.ProcessOption) (*engine.Result, error)
}

type APIHandler struct {
	processor Processor
	history   *storage.AlertHistory
	auth      *auth.Manager
	logger    *zap.Logger
}

func NewAPIHandler(processor Processor, history *storage.AlertHistory, authManager *auth.Manager, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		processor: processor,
		history:   history,
		auth:      authManager,
		logger:    logger,
	}
}

type processResponse struct {
	Status    string `json:"status"`
	Anomalies int    `json:"anomalies"`
	AlertID   string `json:"alert_id,omitempty"`
	KGNode    string `json:"kg_node,omitempty"`
}

// HandleProcess ingests one JSON telemetry record. A record without a machine
// id is dropped and acknowledged with 202.
func (h *APIHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	res, err := h.processor.ProcessRecord(r.Context(), body, engine.WithSource("http"))
	switch {
	case errors.Is(err, data.ErrMalformedRecord):
		h.logger.Debug("rejected malformed record", userField(r))
		writeError(w, http.StatusBadRequest, "malformed telemetry record")
		return
	case errors.Is(err, data.ErrMissingMachineID):
		writeJSON(w, http.StatusAccepted, processResponse{Status: "dropped"})
		return
	case err != nil:
		h.logger.Error("process record", userField(r), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := processResponse{Status: "ok", Anomalies: len(res.Anomalies)}
	if res.Alert != nil {
		resp.AlertID = res.Alert.ID
	}
	if res.Classified != nil {
		resp.KGNode = res.Classified.Label
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleAlerts returns the alert history, oldest first.
func (h *APIHandler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.history.GetAll())
}

func (h *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":           "healthy",
		"alerts":           h.history.Len(),
		"history_capacity": h.history.Capacity(),
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin exchanges configured credentials for a JWT.
func (h *APIHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid login request")
		return
	}

	role, err := h.auth.AuthenticateUser(req.Username, req.Password)
	if err != nil {
		h.logger.Warn("login failed", zap.String("username", req.Username), zap.Error(err))
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.auth.GenerateJWT(req.Username, role)
	if err != nil {
		h.logger.Error("generate token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// userField names the caller authenticated by the auth middleware.
func userField(r *http.Request) zap.Field {
	if user, ok := auth.Username(r.Context()); ok {
		return zap.String("user", user)
	}
	return zap.Skip()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
