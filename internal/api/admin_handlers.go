package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rallypointza/rallypoint/internal/models"
)

// createGroupHandler handles POST /v1/admin/groups.
func (s *Server) createGroupHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("createGroupHandler invoked", "method", r.Method, "path", r.URL.Path)

	var req models.CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("createGroupHandler invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("createGroupHandler validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	group, err := s.st.CreateGroup(r.Context(), req)
	if err != nil {
		slog.Error("createGroupHandler create failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create group"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Group created", group))
}

// createCampaignHandler handles POST /v1/admin/campaigns.
func (s *Server) createCampaignHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("createCampaignHandler invoked", "method", r.Method, "path", r.URL.Path)

	var req models.CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("createCampaignHandler invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("createCampaignHandler validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	// A campaign join word must not shadow an existing one; matching is
	// case-insensitive at resolve time.
	existing, err := s.st.FindCampaignByJoinWord(r.Context(), req.JoinWord)
	if err != nil {
		slog.Error("createCampaignHandler join word check failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to check join word"))
		return
	}
	if existing != nil {
		slog.Warn("createCampaignHandler join word already in use", "join_word", req.JoinWord)
		writeJSONResponse(w, http.StatusConflict, models.Error("Join word already in use"))
		return
	}

	campaign, err := s.st.CreateCampaign(r.Context(), req)
	if err != nil {
		slog.Error("createCampaignHandler create failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create campaign"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Campaign created", campaign))
}

// createCampaignMessageHandler handles POST /v1/admin/campaigns/{campaignUid}/messages.
func (s *Server) createCampaignMessageHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("createCampaignMessageHandler invoked", "method", r.Method, "path", r.URL.Path)

	campaignUID := r.PathValue("campaignUid")
	if campaignUID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Campaign uid is required"))
		return
	}

	campaign, err := s.st.LoadCampaign(r.Context(), campaignUID)
	if err != nil {
		slog.Error("createCampaignMessageHandler load failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load campaign"))
		return
	}
	if campaign == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Campaign not found"))
		return
	}

	var req models.CreateCampaignMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("createCampaignMessageHandler invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("createCampaignMessageHandler validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	message, err := s.st.CreateCampaignMessage(r.Context(), campaignUID, req)
	if err != nil {
		slog.Error("createCampaignMessageHandler create failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create campaign message"))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Campaign message created", message))
}
