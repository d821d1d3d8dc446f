package completion

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{401, KindUnauthorized},
		{403, KindUnauthorized},
		{429, KindRateLimited},
		{500, KindServiceUnavailable},
		{502, KindServiceUnavailable},
		{503, KindServiceUnavailable},
		{599, KindServiceUnavailable},
		{400, KindUnknown},
		{404, KindUnknown},
		{418, KindUnknown},
		{0, KindUnknown},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("status=%d", tc.status), func(t *testing.T) {
			if got := Classify(tc.status); got != tc.want {
				t.Errorf("Classify(%d) = %q, want %q", tc.status, got, tc.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	rateLimited := &Error{Kind: KindRateLimited, StatusCode: 429, Cause: errors.New("slow down")}

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"classified error", rateLimited, KindRateLimited},
		{"wrapped classified error", fmt.Errorf("pipeline: %w", rateLimited), KindRateLimited},
		{"plain error", errors.New("boom"), KindUnknown},
		{"nil", nil, KindUnknown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Errorf("KindOf = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestError_Message(t *testing.T) {
	withStatus := &Error{Kind: KindUnauthorized, StatusCode: 401, Cause: errors.New("bad key")}
	if got, want := withStatus.Error(), "completion: unauthorized (status 401): bad key"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	noStatus := &Error{Kind: KindUnknown, Cause: errors.New("dial tcp: timeout")}
	if got, want := noStatus.Error(), "completion: unknown: dial tcp: timeout"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Kind: KindServiceUnavailable, StatusCode: 503, Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach the cause through Unwrap")
	}
}
