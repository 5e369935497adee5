package errors

import (
	"fmt"
	"testing"
	"time"
)

func TestGroveError(t *testing.T) {
	// Test basic error creation
	err := New(ErrCodeInvalidInput, "bad level")
	if err.Code != ErrCodeInvalidInput {
		t.Errorf("expected code %s, got %s", ErrCodeInvalidInput, err.Code)
	}

	// Test error wrapping
	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeInternal, "save failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	// Test Is function
	if !Is(wrapped, ErrCodeInternal) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeInvalidInput) {
		t.Error("Is should return false for non-matching code")
	}

	// Test WithDetail
	detailed := err.WithDetail("field", "level").WithDetail("value", "deep")
	if detailed.Details["field"] != "level" {
		t.Error("WithDetail should add details")
	}
}

func TestIsThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("updating scenario: %w", IndexOutOfRange(3, 2))

	if !Is(err, ErrCodeIndexOutOfRange) {
		t.Error("Is should see through fmt.Errorf wrapping")
	}
	if GetCode(err) != ErrCodeIndexOutOfRange {
		t.Errorf("expected code %s, got %s", ErrCodeIndexOutOfRange, GetCode(err))
	}
	if GetCode(fmt.Errorf("plain")) != "" {
		t.Error("GetCode should be empty for plain errors")
	}
	if Is(nil, ErrCodeInternal) {
		t.Error("Is(nil) should be false")
	}
}

func TestErrorConstructors(t *testing.T) {
	err := IndexOutOfRange(5, 2)
	if err.Code != ErrCodeIndexOutOfRange {
		t.Errorf("expected code %s, got %s", ErrCodeIndexOutOfRange, err.Code)
	}
	if err.Details["index"] != 5 || err.Details["length"] != 2 {
		t.Error("IndexOutOfRange should include index and length details")
	}

	err = PathNotFound("/nope")
	if err.Message != "Path does not exist" {
		t.Errorf("unexpected message %q", err.Message)
	}
	if err.Details["path"] != "/nope" {
		t.Error("PathNotFound should include path detail")
	}

	err = SearchTimeout(30 * time.Second)
	if err.Details["timeout"] != "30s" {
		t.Errorf("unexpected timeout detail %v", err.Details["timeout"])
	}

	if SearchCancelled().Error() != "SEARCH_CANCELLED: Search cancelled" {
		t.Errorf("unexpected message %q", SearchCancelled().Error())
	}
}
