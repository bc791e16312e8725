// ABOUTME: Classifies remote Google errors into codes with friendly messages
// ABOUTME: Callers degrade the affected widget instead of failing
package sync

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// Error codes.
const (
	CodeUnavailable      = "unavailable"
	CodePermissionDenied = "permission-denied"
	CodeNotFound         = "not-found"
	CodeInvalidToken     = "invalid-token"
	CodeUnknown          = "unknown"
)

// Classification is a code plus a message fit for end users.
type Classification struct {
	Code    string
	Message string
}

var messages = map[string]string{
	CodeUnavailable:      "Google Calendar is temporarily unavailable. Showing CRM events only.",
	CodePermissionDenied: "Calendar access was denied. Re-run 'hirepipe sync init' to grant access.",
	CodeNotFound:         "The calendar could not be found.",
	CodeInvalidToken:     "Your Google sign-in expired. Re-run 'hirepipe sync init'.",
	CodeUnknown:          "Calendar could not be loaded.",
}

// Classify maps err to a Classification. nil yields the zero value.
func Classify(err error) Classification {
	if err == nil {
		return Classification{}
	}
	code := classifyCode(err)
	return Classification{Code: code, Message: messages[code]}
}

func classifyCode(err error) string {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return CodeInvalidToken
		case http.StatusForbidden:
			for _, item := range apiErr.Errors {
				if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
					return CodeUnavailable
				}
			}
			return CodePermissionDenied
		case http.StatusNotFound, http.StatusGone:
			return CodeNotFound
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return CodeUnavailable
		}
		return CodeUnknown
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return CodeInvalidToken
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CodeUnavailable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return CodeUnavailable
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission") || strings.Contains(msg, "forbidden"):
		return CodePermissionDenied
	case strings.Contains(msg, "unavailable"):
		return CodeUnavailable
	case strings.Contains(msg, "token"):
		return CodeInvalidToken
	}
	return CodeUnknown
}
