package platform

import (
	"errors"
	"testing"
)

func TestInstanceKey(t *testing.T) {
	tests := []struct {
		name    string
		program string
		appID   string
		want    string
	}{
		{name: "program and app id", program: "presencego", appID: "383226320970055681", want: "presencego-383226320970055681"},
		{name: "empty app id", program: "presencego", appID: "  ", want: "presencego"},
		{name: "empty program falls back", program: "", appID: "42", want: "presencego-42"},
		{name: "unsafe runes replaced", program: "presence/go", appID: "a:b", want: "presence_go-a_b"},
		{name: "separator edges trimmed", program: "..presencego_", appID: "-42-", want: "presencego-42"},
	}

	for _, tc := range tests {
		if got := InstanceKey(tc.program, tc.appID); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestRunningInstanceError(t *testing.T) {
	err := error(&RunningInstanceError{Key: "presencego-42", PID: 1234})
	if !errors.Is(err, ErrInstanceAlreadyRunning) {
		t.Fatalf("expected %v to match ErrInstanceAlreadyRunning", err)
	}
	if got := err.Error(); got != "daemon already running: presencego-42 (pid 1234)" {
		t.Fatalf("unexpected message %q", got)
	}

	var running *RunningInstanceError
	if !errors.As(error(&RunningInstanceError{Key: "k"}), &running) || running.PID != 0 {
		t.Fatalf("expected RunningInstanceError without pid, got %+v", running)
	}
}
