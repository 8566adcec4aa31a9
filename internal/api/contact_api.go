package api

import (
	"net/http"

	"detailing/internal/models"
	"detailing/internal/service"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

const msgContactSent = "Your message has been sent successfully. We will get back to you soon!"

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// handleContact forwards a contact form message to the business.
// POST /api/contact
func (s *HTTPServer) handleContact(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var msg models.ContactMessage
	if err := decodeJSON(r, &msg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := s.contacts.SubmitContact(r.Context(), &msg); err != nil {
		if verr, ok := service.IsValidation(err); ok {
			writeError(w, http.StatusBadRequest, verr.Message)
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("Contact submission failed")
		writeError(w, http.StatusInternalServerError, "Failed to send message. Please try again later.")
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: msgContactSent})
}
