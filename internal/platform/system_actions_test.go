package platform

import (
	"errors"
	"strings"
	"testing"
)

type recordingStarter struct {
	calls []string
	fail  int
}

func (r *recordingStarter) start(name string, args ...string) error {
	r.calls = append(r.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	if len(r.calls) <= r.fail {
		return errors.New("not installed")
	}

	return nil
}

func TestOpenDiscordFallsBack(t *testing.T) {
	starter := &recordingStarter{fail: 1}
	actions := &systemActions{goos: "linux", start: starter.start}

	if err := actions.OpenDiscord(); err != nil {
		t.Fatalf("open discord: %v", err)
	}
	if len(starter.calls) != 2 || starter.calls[0] != "xdg-open discord://" || starter.calls[1] != "discord" {
		t.Fatalf("unexpected attempts %v", starter.calls)
	}
}

func TestOpenDiscordAllFail(t *testing.T) {
	starter := &recordingStarter{fail: 10}
	actions := &systemActions{goos: "darwin", start: starter.start}

	err := actions.OpenDiscord()
	if err == nil || !strings.Contains(err.Error(), "not installed") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(starter.calls) != 2 {
		t.Fatalf("expected both darwin launchers to be tried, got %v", starter.calls)
	}
}

func TestOpenDiscordUnsupported(t *testing.T) {
	actions := &systemActions{goos: "plan9", start: (&recordingStarter{}).start}
	if err := actions.OpenDiscord(); err == nil {
		t.Fatal("expected unsupported os error")
	}
}

func TestOpenPath(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{goos: "linux", want: "xdg-open /tmp/presenced.log"},
		{goos: "windows", want: "cmd /c start  /tmp/presenced.log"},
		{goos: "darwin", want: "open /tmp/presenced.log"},
	}

	for _, tc := range tests {
		starter := &recordingStarter{}
		actions := &systemActions{goos: tc.goos, start: starter.start}
		if err := actions.OpenPath("/tmp/presenced.log"); err != nil {
			t.Fatalf("%s: open path: %v", tc.goos, err)
		}
		if len(starter.calls) != 1 || starter.calls[0] != tc.want {
			t.Fatalf("%s: unexpected command %v", tc.goos, starter.calls)
		}
	}

	if err := (&systemActions{goos: "linux"}).OpenPath("  "); err == nil {
		t.Fatal("expected empty path to be rejected")
	}
}
