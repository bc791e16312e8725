package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"unauthorized", &googleapi.Error{Code: http.StatusUnauthorized}, CodeInvalidToken},
		{"forbidden", &googleapi.Error{Code: http.StatusForbidden}, CodePermissionDenied},
		{"rate limited", &googleapi.Error{Code: http.StatusForbidden, Errors: []googleapi.ErrorItem{{Reason: "rateLimitExceeded"}}}, CodeUnavailable},
		{"server error wrapped", fmt.Errorf("list: %w", &googleapi.Error{Code: http.StatusServiceUnavailable}), CodeUnavailable},
		{"not found", &googleapi.Error{Code: http.StatusNotFound}, CodeNotFound},
		{"deadline", context.DeadlineExceeded, CodeUnavailable},
		{"permission text", errors.New("permission-denied: nope"), CodePermissionDenied},
		{"other", errors.New("weird"), CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Code != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.err, got.Code, tt.want)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("expected a friendly message")
			}
		})
	}
}
