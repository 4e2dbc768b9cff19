package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	"securewrap/core"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid token")
)

// ErrorBody is the JSON envelope of every failed request.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	codeUnauthenticated = "Unauthenticated"
	codeRateLimited     = "RateLimited"
	codeNotFound        = "NotFound"
)

// statusFor maps an error code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case "":
		return http.StatusOK
	case codeUnauthenticated:
		return http.StatusUnauthorized
	case codeRateLimited:
		return http.StatusTooManyRequests
	case "Unauthorized", "LedgerUnauthorized":
		return http.StatusForbidden
	case codeNotFound, "NotInitialized", "MintNotFound", "MintPairNotFound", "OrderNotFound",
		"UserTokenStateNotFound", "PendingUnwrapNotInitialized":
		return http.StatusNotFound
	case "InvalidRequest", "UnknownOperation":
		return http.StatusBadRequest
	case "InvalidClock":
		return http.StatusServiceUnavailable
	case core.CodeInternal, "SupplyInvariantViolated":
		return http.StatusInternalServerError
	case "AlreadyInitialized", "MintExists", "MintPairExists", "PendingUnwrapExists", "OrderExists":
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code, message string) {
	writeJSON(w, statusFor(code), ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}

// writeFailure reports err using the node's error taxonomy. Internal failures
// are not echoed to the client.
func writeFailure(w http.ResponseWriter, err error) {
	code := core.ErrorCode(err)
	message := err.Error()
	if code == core.CodeInternal {
		message = "internal error"
	}
	writeError(w, code, message)
}
