package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"fichecode/internal/codec"
	"fichecode/internal/fiche"
	"fichecode/internal/scan"
	"fichecode/internal/urlpack"
)

const (
	typeInvalidRequest = "invalid_request_error"
	typeEncoding       = "encoding_error"
	typeDecoding       = "decoding_error"
	typeEmptyScan      = "empty_scan_result"
	typeServer         = "server_error"
)

type requestError struct {
	Status  int
	Message string
	Type    string
	Code    string
}

func (e requestError) Error() string {
	return e.Message
}

func invalidRequest(message string) requestError {
	return requestError{
		Status:  http.StatusBadRequest,
		Message: message,
		Type:    typeInvalidRequest,
	}
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

func writeError(c echo.Context, status int, message, errType, code string) error {
	return c.JSON(status, errorBody{Error: errorDetail{Message: message, Type: errType, Code: code}})
}

func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = writeError(c, reqErr.Status, reqErr.Message, reqErr.Type, reqErr.Code)
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = writeError(c, he.Code, fmt.Sprint(he.Message), typeInvalidRequest, "")
		return
	}

	_ = writeError(c, http.StatusInternalServerError, "internal server error", typeServer, "")
}

func toHTTPError(err error) error {
	return classify(err)
}

// classify maps core outcomes to responses so clients can tell "no code
// found" from "not a code from this application".
func classify(err error) requestError {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		return reqErr
	}

	switch {
	case errors.Is(err, scan.ErrEmptyScanResult):
		return requestError{
			Status:  http.StatusUnprocessableEntity,
			Message: err.Error(),
			Type:    typeEmptyScan,
			Code:    "no_code_detected",
		}
	case codec.IsDecodingError(err):
		return requestError{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
			Type:    typeDecoding,
			Code:    decodingCode(err),
		}
	case codec.IsEncodingError(err):
		code := ""
		if inv := fiche.Invariant(err); inv != nil {
			code = invariantCode(inv)
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
			Type:    typeEncoding,
			Code:    code,
		}
	case errors.Is(err, urlpack.ErrInvalidBase), errors.Is(err, urlpack.ErrNoPayload):
		return invalidRequest(err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return requestError{
			Status:  http.StatusRequestTimeout,
			Message: "request ended before processing completed",
			Type:    typeInvalidRequest,
			Code:    "request_cancelled",
		}
	}

	return requestError{
		Status:  http.StatusInternalServerError,
		Message: "internal server error",
		Type:    typeServer,
	}
}

func decodingCode(err error) string {
	switch {
	case errors.Is(err, codec.ErrMissingVersion):
		return "missing_version"
	case errors.Is(err, codec.ErrUnsupportedVersion):
		return "unsupported_version"
	case errors.Is(err, codec.ErrTruncated):
		return "truncated"
	case errors.Is(err, codec.ErrInvalidFiche):
		return "invalid_fiche"
	default:
		return "corrupted"
	}
}

func invariantCode(inv error) string {
	switch inv {
	case fiche.ErrEmptyVariableID:
		return "empty_variable_id"
	case fiche.ErrDuplicateVariableID:
		return "duplicate_variable_id"
	case fiche.ErrInvalidLevel:
		return "invalid_level"
	case fiche.ErrEmptyAssistant:
		return "empty_assistant"
	case fiche.ErrDuplicateAssistant:
		return "duplicate_assistant"
	case fiche.ErrInvalidText:
		return "invalid_text"
	default:
		return ""
	}
}
