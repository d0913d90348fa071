package rtmserr

import (
	"errors"
	"testing"
)

func TestFromStatusCode_FixedTable(t *testing.T) {
	cases := []struct {
		code     int
		category Category
		retrying bool
	}{
		{1, CategoryAuth, false},
		{2, CategoryAuth, false},
		{5, CategoryMeeting, false},
		{10, CategoryServer, true},
		{11, CategoryServer, true},
		{12, CategoryNetwork, true},
		{13, CategoryMeeting, false},
		{15, CategorySecurity, false},
		{16, CategoryMedia, true},
		{17, CategorySecurity, false},
		{18, CategoryAuth, false},
	}

	for _, tc := range cases {
		err := FromStatusCode(tc.code)
		if err.Category != tc.category {
			t.Errorf("code %d: got category %s, want %s", tc.code, err.Category, tc.category)
		}
		if err.Retryable() != tc.retrying {
			t.Errorf("code %d: got retryable=%v, want %v", tc.code, err.Retryable(), tc.retrying)
		}
	}
}

func TestFromStatusCode_Unknown(t *testing.T) {
	err := FromStatusCode(999)
	if err.Category != CategoryUnknown {
		t.Fatalf("expected CategoryUnknown, got %s", err.Category)
	}
	if !err.Retryable() {
		t.Fatalf("unknown category should default to retryable")
	}
}

func TestRTMSError_Unwrap(t *testing.T) {
	base := errors.New("boom")
	wrapped := Wrap(CategoryNetwork, "dial failed", base)
	if !errors.Is(wrapped, base) {
		t.Fatalf("expected errors.Is to find wrapped cause")
	}
}

func TestRetryablePartition(t *testing.T) {
	retryable := []Category{CategoryNetwork, CategoryServer, CategoryLimit, CategoryConnection, CategoryMedia}
	for _, c := range retryable {
		e := &RTMSError{Category: c}
		if !e.Retryable() {
			t.Errorf("expected %s to be retryable", c)
		}
	}

	nonRetry := []Category{CategoryAuth, CategorySecurity, CategoryRequest, CategoryMeeting, CategoryStream}
	for _, c := range nonRetry {
		e := &RTMSError{Category: c}
		if e.Retryable() {
			t.Errorf("expected %s to be non-retryable", c)
		}
	}
}
