package handler

import (
	"context"
	"net/http"

	"finance_users/internal/common"

	"github.com/go-chi/chi/v5"
)

type EmailService interface {
	SendVerification(ctx context.Context, email string) (*common.MessageResponse, error)
}

type EmailHandler struct {
	emailService EmailService
}

func NewEmailHandler(emailService EmailService) *EmailHandler {
	return &EmailHandler{emailService: emailService}
}

func (h *EmailHandler) RegisterRoutes(r chi.Router) {
	r.Post("/send", h.send)
}

func (h *EmailHandler) send(w http.ResponseWriter, r *http.Request) {
	resp, err := h.emailService.SendVerification(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}
