package httpx

import "net/http"

// Shorthand problem responders for the error classes the API exposes.
// Handlers map domain sentinels onto these; store level failures fall through
// to Internal so their detail never reaches the client.

// BadRequest reports a malformed or invalid request body.
func BadRequest(w http.ResponseWriter, detail string) {
	Problem(w, http.StatusBadRequest, "Bad Request", detail)
}

// Unauthorized reports a missing or unusable identity.
func Unauthorized(w http.ResponseWriter, detail string) {
	Problem(w, http.StatusUnauthorized, "Unauthorized", detail)
}

// NotFound reports an absent resource. Ownership failures use the same class.
func NotFound(w http.ResponseWriter, detail string) {
	Problem(w, http.StatusNotFound, "Not Found", detail)
}

// Conflict reports a retryable write conflict.
func Conflict(w http.ResponseWriter, detail string) {
	Problem(w, http.StatusConflict, "Conflict", detail)
}

// Internal reports an unexpected failure without detail.
func Internal(w http.ResponseWriter) {
	Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
