package http

import (
	"net/http"

	"github.com/custodia-labs/countersign/internal/core/domain"
)

// handleSigningView godoc
// @Summary      Open signing link
// @Description  The recipient's own fields and whether they may act now
// @Tags         Signing
// @Produce      json
// @Param        id         path      string  true  "Instance ID"
// @Param        recipient  query     string  true  "Recipient ID"
// @Success      200        {object}  domain.RecipientView
// @Failure      403        {object}  ErrorResponse  "Not a recipient of this instance"
// @Failure      404        {object}  ErrorResponse
// @Router       /signing/{id} [get]
func (s *Server) handleSigningView(w http.ResponseWriter, r *http.Request) {
	recipientID := r.URL.Query().Get("recipient")
	if recipientID == "" {
		writeError(w, http.StatusBadRequest, "missing recipient")
		return
	}

	view, err := s.signingService.View(r.Context(), r.PathValue("id"), recipientID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleSubmit godoc
// @Summary      Submit fields
// @Description  Record the recipient's values and advance the signing order
// @Tags         Signing
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "Instance ID"
// @Param        request  body      domain.SubmissionRequest  true  "Field values"
// @Success      200      {object}  domain.SubmissionResult
// @Failure      400      {object}  ErrorResponse  "Missing required field"
// @Failure      403      {object}  ErrorResponse  "Not a recipient of this instance"
// @Failure      409      {object}  ErrorResponse  "Out of turn or already completed"
// @Failure      503      {object}  ErrorResponse  "Instance busy, retry"
// @Router       /signing/{id}/submit [post]
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RecipientID == "" {
		writeError(w, http.StatusBadRequest, "missing recipient_id")
		return
	}

	result, err := s.signingService.Submit(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
