package server

import (
	"encoding/json"
	"log"
	"net/http"

	"filegate/internal/validate"
)

// errorResponse is the envelope for every non-2xx body. The optional fields
// carry the supporting data for specific rejection reasons.
type errorResponse struct {
	Error             string   `json:"error"`
	FileSize          int64    `json:"fileSize,omitempty"`
	SizeLimit         int64    `json:"sizeLimit,omitempty"`
	AllowedExtensions []string `json:"allowedExtensions,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func respondRejection(w http.ResponseWriter, rej *validate.Rejection) {
	respondJSON(w, http.StatusBadRequest, errorResponse{
		Error:             rej.Message,
		FileSize:          rej.FileSize,
		SizeLimit:         rej.SizeLimit,
		AllowedExtensions: rej.AllowedExtensions,
	})
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Error: msg})
}
