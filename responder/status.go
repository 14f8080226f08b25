package responder

import (
	"net/http"
	"strconv"
)

// Status is an HTTP response status code.
type Status int

// 常用状态码
const (
	StatusContinue           Status = http.StatusContinue
	StatusSwitchingProtocols Status = http.StatusSwitchingProtocols

	StatusOK        Status = http.StatusOK
	StatusCreated   Status = http.StatusCreated
	StatusAccepted  Status = http.StatusAccepted
	StatusNoContent Status = http.StatusNoContent

	StatusMovedPermanently  Status = http.StatusMovedPermanently
	StatusFound             Status = http.StatusFound
	StatusSeeOther          Status = http.StatusSeeOther
	StatusNotModified       Status = http.StatusNotModified
	StatusTemporaryRedirect Status = http.StatusTemporaryRedirect
	StatusPermanentRedirect Status = http.StatusPermanentRedirect

	StatusBadRequest       Status = http.StatusBadRequest
	StatusUnauthorized     Status = http.StatusUnauthorized
	StatusForbidden        Status = http.StatusForbidden
	StatusNotFound         Status = http.StatusNotFound
	StatusMethodNotAllowed Status = http.StatusMethodNotAllowed
	StatusRequestTimeout   Status = http.StatusRequestTimeout
	StatusConflict         Status = http.StatusConflict
	StatusGone             Status = http.StatusGone
	StatusTooManyRequests  Status = http.StatusTooManyRequests

	StatusInternalServerError Status = http.StatusInternalServerError
	StatusNotImplemented      Status = http.StatusNotImplemented
	StatusBadGateway          Status = http.StatusBadGateway
	StatusServiceUnavailable  Status = http.StatusServiceUnavailable
	StatusGatewayTimeout      Status = http.StatusGatewayTimeout
)

// Code returns the numeric status code.
func (s Status) Code() int { return int(s) }

// Reason returns the registered reason phrase, or "Unknown".
func (s Status) Reason() string {
	if text := http.StatusText(int(s)); text != "" {
		return text
	}
	return "Unknown"
}

// String renders the status-line tail, e.g. "404 Not Found".
func (s Status) String() string {
	return strconv.Itoa(int(s)) + " " + s.Reason()
}
