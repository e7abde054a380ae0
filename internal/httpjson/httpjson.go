package httpjson

import (
	"encoding/json"
	"net/http"
)

// Failure is the body of every rejected request.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteFailure(w http.ResponseWriter, status int, message, code string) {
	Write(w, status, Failure{
		Success: false,
		Error:   message,
		Code:    code,
	})
}
