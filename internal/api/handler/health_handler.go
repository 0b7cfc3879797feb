package handler

import (
	"net/http"

	"finance_users/internal/common"
)

type HealthResponse struct {
	StatusCode int `json:"status_code"`
}

func Health(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, http.StatusOK, HealthResponse{StatusCode: http.StatusOK})
}
