package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/custodia-labs/countersign/internal/core/domain"
)

// FavoriteResponse reports the new favorite flag
// @Description Favorite toggle result
type FavoriteResponse struct {
	Favorite bool `json:"favorite"`
}

// ownerID returns the authenticated owner. Routes using it sit behind
// AuthMiddleware, so a missing context is a wiring bug.
func ownerID(r *http.Request) string {
	if authCtx := GetAuthContext(r.Context()); authCtx != nil {
		return authCtx.UserID
	}
	return ""
}

// handleCreateInstance godoc
// @Summary      Create instance
// @Description  Create a draft instance with its recipients and fields
// @Tags         Instances
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.CreateInstanceRequest  true  "Instance"
// @Success      201      {object}  domain.Instance
// @Failure      400      {object}  ErrorResponse  "Invalid configuration"
// @Router       /instances [post]
func (s *Server) handleCreateInstance(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateInstanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	instance, err := s.instanceService.Create(r.Context(), ownerID(r), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, instance)
}

// handleListInstances godoc
// @Summary      List instances
// @Tags         Instances
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  domain.Instance
// @Router       /instances [get]
func (s *Server) handleListInstances(w http.ResponseWriter, r *http.Request) {
	instances, err := s.instanceService.List(r.Context(), ownerID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(instances))
}

// handleListDeleted godoc
// @Summary      List deleted instances
// @Tags         Instances
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  domain.Instance
// @Router       /instances/deleted [get]
func (s *Server) handleListDeleted(w http.ResponseWriter, r *http.Request) {
	instances, err := s.instanceService.ListDeleted(r.Context(), ownerID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(instances))
}

// handleListSent godoc
// @Summary      List sent instances
// @Description  Sent instances with signed and total recipient counts
// @Tags         Instances
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  domain.InstanceSummary
// @Router       /instances/sent [get]
func (s *Server) handleListSent(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.instanceService.ListSent(r.Context(), ownerID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(summaries))
}

// handleInbox godoc
// @Summary      Inbox
// @Description  Sent instances in which the authenticated owner's email is a recipient
// @Tags         Instances
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  domain.InstanceSummary
// @Router       /instances/inbox [get]
func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summaries, err := s.instanceService.Inbox(r.Context(), authCtx.Email)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(summaries))
}

// handleGetInstance godoc
// @Summary      Get instance
// @Tags         Instances
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Instance ID"
// @Success      200  {object}  domain.Instance
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /instances/{id} [get]
func (s *Server) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	instance, err := s.instanceService.Get(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, instance)
}

// handleUpdateFields godoc
// @Summary      Place fields
// @Description  Replace the fields of a draft instance
// @Tags         Instances
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                      true  "Instance ID"
// @Param        request  body      domain.UpdateFieldsRequest  true  "Fields"
// @Success      200      {object}  domain.Instance
// @Failure      409      {object}  ErrorResponse  "Instance already sent"
// @Router       /instances/{id}/fields [put]
func (s *Server) handleUpdateFields(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateFieldsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	instance, err := s.instanceService.UpdateFields(r.Context(), ownerID(r), r.PathValue("id"), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, instance)
}

// handleDeleteInstance godoc
// @Summary      Delete instance
// @Description  Soft-delete an instance
// @Tags         Instances
// @Security     BearerAuth
// @Param        id   path  string  true  "Instance ID"
// @Success      204
// @Router       /instances/{id} [delete]
func (s *Server) handleDeleteInstance(w http.ResponseWriter, r *http.Request) {
	if err := s.instanceService.Delete(r.Context(), ownerID(r), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRestoreInstance godoc
// @Summary      Restore instance
// @Tags         Instances
// @Security     BearerAuth
// @Param        id   path  string  true  "Instance ID"
// @Success      204
// @Router       /instances/{id}/restore [post]
func (s *Server) handleRestoreInstance(w http.ResponseWriter, r *http.Request) {
	if err := s.instanceService.Restore(r.Context(), ownerID(r), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePurgeInstance godoc
// @Summary      Purge instance
// @Description  Permanently delete a soft-deleted instance
// @Tags         Instances
// @Security     BearerAuth
// @Param        id   path  string  true  "Instance ID"
// @Success      204
// @Failure      400  {object}  ErrorResponse  "Instance is not deleted"
// @Router       /instances/{id}/permanent [delete]
func (s *Server) handlePurgeInstance(w http.ResponseWriter, r *http.Request) {
	if err := s.instanceService.Purge(r.Context(), ownerID(r), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleToggleFavorite godoc
// @Summary      Toggle favorite
// @Tags         Instances
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Instance ID"
// @Success      200  {object}  FavoriteResponse
// @Router       /instances/{id}/favorite [post]
func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	favorite, err := s.instanceService.ToggleFavorite(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FavoriteResponse{Favorite: favorite})
}

// handleSendInstance godoc
// @Summary      Send instance
// @Description  Freeze recipients and fields and notify the first signers
// @Tags         Instances
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Instance ID"
// @Success      200  {object}  domain.Instance
// @Failure      400  {object}  ErrorResponse  "Invalid configuration"
// @Failure      409  {object}  ErrorResponse  "Already sent"
// @Failure      422  {object}  ErrorResponse  "Field outside the document"
// @Router       /instances/{id}/send [post]
func (s *Server) handleSendInstance(w http.ResponseWriter, r *http.Request) {
	instance, err := s.instanceService.Send(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, instance)
}

// handleDownload godoc
// @Summary      Download document
// @Description  Composed PDF with every signed value. Refused until complete unless preview is set.
// @Tags         Instances
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id       path   string  true   "Instance ID"
// @Param        preview  query  bool    false  "Compose before completion"
// @Success      200
// @Failure      409  {object}  ErrorResponse  "Signing not complete"
// @Router       /instances/{id}/download [get]
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	preview := false
	if raw := r.URL.Query().Get("preview"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid preview flag")
			return
		}
		preview = v
	}

	id := r.PathValue("id")
	doc, err := s.instanceService.Download(r.Context(), ownerID(r), id, preview)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".pdf"))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// nonNil makes empty lists encode as [] rather than null
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
