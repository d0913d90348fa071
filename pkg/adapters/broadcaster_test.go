package adapters

import "testing"

func TestChannelForMeeting_Sanitizes(t *testing.T) {
	got := channelForMeeting("abc-123.def")
	want := "rtms_meeting_abc_123_def"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
