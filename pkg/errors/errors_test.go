package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestWithFallbackKeepsServerMessage(t *testing.T) {
	err := WithFallback(NewApiError("已解决"), "submit flag failed")
	if err.Error() != "已解决" {
		t.Errorf("expected server message to pass through, got %q", err.Error())
	}
}

func TestWithFallbackFillsEmptyMessage(t *testing.T) {
	err := WithFallback(NewApiError(""), "submit flag failed")
	var apiErr *ApiError
	if !stderrors.As(err, &apiErr) {
		t.Fatalf("expected ApiError, got %T", err)
	}
	if apiErr.Message != "submit flag failed" {
		t.Errorf("expected fallback message, got %q", apiErr.Message)
	}
}

func TestWithFallbackIgnoresOtherErrors(t *testing.T) {
	in := NewHttpError(502, "bad gateway")
	if out := WithFallback(in, "whatever"); out != in {
		t.Errorf("expected non-api error to be returned unchanged")
	}
}

func TestHttpErrorTruncatesBody(t *testing.T) {
	err := NewHttpError(500, strings.Repeat("x", 1000))
	if len(err.Body) != 256 {
		t.Errorf("expected body to be truncated to 256 bytes, got %d", len(err.Body))
	}
}

func TestNetworkErrorUnwraps(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := fmt.Errorf("get teams: %w", NewNetworkError("GET /teams", cause))
	if !stderrors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable")
	}
	var netErr *NetworkError
	if !stderrors.As(err, &netErr) {
		t.Error("expected NetworkError in chain")
	}
}

func TestIsUnauthorized(t *testing.T) {
	if !IsUnauthorized(fmt.Errorf("wrap: %w", NewAuthenticationError("session expired"))) {
		t.Error("expected wrapped AuthenticationError to be detected")
	}
	if IsUnauthorized(NewApiError("nope")) {
		t.Error("ApiError is not an authentication failure")
	}
}

func TestMissingIdentifierErrorMessage(t *testing.T) {
	err := NewMissingIdentifierError("team", []string{"id", "teamID"})
	if err.Error() != "team record has no identifier (tried id, teamID)" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
