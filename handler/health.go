package handler

import (
	"net/http"

	"github.com/majorphones/topup/infra/response"
)

// Health reports service liveness
func Health(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "ok", map[string]string{"service": "topup"})
}
