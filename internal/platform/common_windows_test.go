//go:build windows

package platform

import "testing"

func TestBuildWindowsCommandLine(t *testing.T) {
	got := buildWindowsCommandLine(`C:\Program Files\presencego\presenced.exe`, []string{"--config", `C:\Users\me\presence.json`})
	want := `"C:\Program Files\presencego\presenced.exe" --config C:\Users\me\presence.json`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestQuoteWindowsCommandLineArg(t *testing.T) {
	tests := map[string]string{
		"":               `""`,
		"plain":          "plain",
		"with space":     `"with space"`,
		`say "hi"`:       `"say \"hi\""`,
		`trailing\ dir\`: `"trailing\ dir\\"`,
	}
	for in, want := range tests {
		if got := quoteWindowsCommandLineArg(in); got != want {
			t.Fatalf("quote %q: expected %q, got %q", in, want, got)
		}
	}
}
