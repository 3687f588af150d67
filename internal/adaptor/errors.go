package adaptor

import (
	"errors"
	"net/http"

	"toolcart/pkg/apperror"
	"toolcart/pkg/utils"

	"go.uber.org/zap"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}

	switch appErr.Kind {
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindExpired, apperror.KindInvalid, apperror.KindValidation, apperror.KindSignatureMismatch:
		return http.StatusBadRequest
	case apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindIssuanceFailed:
		return http.StatusBadGateway
	case apperror.KindGatewayTimeout:
		return http.StatusGatewayTimeout
	case apperror.KindGateway:
		if appErr.StatusCode == http.StatusBadRequest {
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorCode prefers the validation reason (AMOUNT_TOO_SMALL...) over the kind.
func errorCode(err error) string {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		return string(apperror.KindInternal)
	}
	if appErr.Reason != "" {
		return appErr.Reason
	}
	return string(appErr.Kind)
}

// writeError is the single place where service errors become HTTP responses.
func writeError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	status := statusFor(err)

	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusGatewayTimeout {
		log.Error("Failed to "+operation, zap.Error(err), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
		return
	}

	log.Warn(operation+" failed",
		zap.Error(err),
		zap.String("kind", string(apperror.KindOf(err))),
		zap.Int("status", status),
	)

	var appErr *apperror.Error
	message := err.Error()
	if errors.As(err, &appErr) && appErr.Message != "" {
		message = appErr.Message
	}
	utils.ResponseError(w, status, message, errorCode(err))
}
