package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rallypointza/rallypoint/internal/flow"
	"github.com/rallypointza/rallypoint/internal/models"
)

// healthHandler handles GET /v1/health.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Service is healthy", nil))
}

// userIDHandler handles POST /v1/user/id. It loads or creates the chat user
// for a phone number and returns the stable user uid the gateway echoes on
// every later call.
func (s *Server) userIDHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("userIDHandler invoked", "method", r.Method, "path", r.URL.Path)

	var req models.UserIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("userIDHandler invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("userIDHandler validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	canonicalPhone, err := s.msgService.ValidateAndCanonicalizeRecipient(req.Msisdn)
	if err != nil {
		slog.Warn("userIDHandler phone validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid phone number: "+err.Error()))
		return
	}

	user, err := s.st.LoadOrCreateUser(r.Context(), canonicalPhone)
	if err != nil {
		slog.Error("userIDHandler load or create failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to resolve user"))
		return
	}

	if err := s.st.RecordUserLog(r.Context(), user.UID, models.LogUserSession, "session opened", models.ChannelWhatsApp); err != nil {
		slog.Warn("userIDHandler session log failed", "error", err, "user", user.UID)
	}

	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"userUid": user.UID}))
}

// phraseSearchHandler handles POST /v1/phrase/search.
func (s *Server) phraseSearchHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("phraseSearchHandler invoked", "method", r.Method, "path", r.URL.Path)

	var req models.PhraseSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("phraseSearchHandler invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("phraseSearchHandler validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	resp, err := s.engine.PhraseSearch(r.Context(), req)
	if err != nil {
		s.writeFlowError(w, "phraseSearchHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// entitySelectHandler handles POST /v1/entity/select/{entityType}/{entityUid}.
// The gateway calls it when the user picks an entry from a broad-search menu.
func (s *Server) entitySelectHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("entitySelectHandler invoked", "method", r.Method, "path", r.URL.Path)

	et, ok := models.ParseEntityType(r.PathValue("entityType"))
	if !ok {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid entity type"))
		return
	}
	entityUID := r.PathValue("entityUid")
	if entityUID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Entity uid is required"))
		return
	}

	var req models.EntitySelectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("entitySelectHandler invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("entitySelectHandler validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	resp, err := s.engine.SelectEntity(r.Context(), et, entityUID, req.UserID)
	if err != nil {
		s.writeFlowError(w, "entitySelectHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// entityRespondHandler handles POST /v1/entity/respond/{entityType}/{entityUid}.
// Every user reply inside an active flow lands here.
func (s *Server) entityRespondHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("entityRespondHandler invoked", "method", r.Method, "path", r.URL.Path)

	et, ok := models.ParseEntityType(r.PathValue("entityType"))
	if !ok {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid entity type"))
		return
	}
	entityUID := r.PathValue("entityUid")
	if entityUID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Entity uid is required"))
		return
	}

	var req models.EntityRespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("entityRespondHandler invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("entityRespondHandler validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	resp, err := s.engine.Respond(r.Context(), et, entityUID, req)
	if err != nil {
		s.writeFlowError(w, "entityRespondHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, resp)
}

// writeFlowError maps engine errors to HTTP statuses.
func (s *Server) writeFlowError(w http.ResponseWriter, handler string, err error) {
	if errors.Is(err, flow.ErrUserNotFound) {
		slog.Warn(handler+" unknown user", "error", err)
		writeJSONResponse(w, http.StatusNotFound, models.Error("User not found"))
		return
	}
	slog.Error(handler+" engine error", "error", err)
	writeJSONResponse(w, http.StatusInternalServerError, models.Error("Internal server error"))
}
