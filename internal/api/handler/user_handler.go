package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"finance_users/internal/api/middleware"
	"finance_users/internal/app/service"
	"finance_users/internal/common"
	"finance_users/internal/domain/model"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type UserService interface {
	FindAll(ctx context.Context) ([]model.UserDTO, error)
	FindByID(ctx context.Context, id string) (*model.UserDTO, error)
	FindByEmail(ctx context.Context, email string) (*model.UserDTO, error)
	Create(ctx context.Context, req service.RegisterRequest) (*service.RegisterResponse, error)
	Update(ctx context.Context, id string, req service.UpdateUserRequest) (*service.UpdateUserResponse, error)
	Delete(ctx context.Context, id string) error
}

type UserHandler struct {
	userService UserService
	logger      *logrus.Logger
}

func NewUserHandler(userService UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{userService: userService, logger: logger}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Put("/", h.update)
	r.Delete("/", h.delete)
	r.Post("/register", h.register)
	r.Get("/show", h.showByID)
	r.Get("/show/email", h.showByEmail)
}

func (h *UserHandler) list(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.FindAll(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, users)
}

func (h *UserHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	resp, err := h.userService.Create(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *UserHandler) showByID(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.FindByID(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) showByEmail(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.FindByEmail(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	resp, err := h.userService.Update(r.Context(), r.URL.Query().Get("id"), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *UserHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if err := h.userService.Delete(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	actor, _ := middleware.GetUserIDFromContext(r.Context())
	role, _ := middleware.GetUserRoleFromContext(r.Context())
	h.logger.WithFields(logrus.Fields{"user_id": id, "actor_id": actor, "actor_role": role}).Info("User removed via API")
	common.RespondNoContent(w)
}

// respondError logs failures that reach the client as a generic 500.
func (h *UserHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	if common.HTTPStatusFromError(err) == http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", r.URL.Path).Error("User request failed")
	}
	common.RespondWithDomainError(w, err)
}
