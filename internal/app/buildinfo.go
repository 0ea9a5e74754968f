package app

import (
	"fmt"
	"strings"
	"time"
)

// Filled by ldflags in release builds.
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)

func BuildVersion() string {
	version := strings.TrimSpace(Version)
	if version == "" {
		return "dev"
	}

	return version
}

// ShortCommit trims the revision to 8 characters.
func ShortCommit() string {
	commit := strings.TrimSpace(Commit)
	if len(commit) > 8 {
		return commit[:8]
	}

	return commit
}

func BuildDateYMD() string {
	raw := strings.TrimSpace(BuildDate)
	if raw == "" {
		return ""
	}

	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed.Format(time.DateOnly)
	}
	if len(raw) >= len(time.DateOnly) {
		if _, err := time.Parse(time.DateOnly, raw[:len(time.DateOnly)]); err == nil {
			return raw[:len(time.DateOnly)]
		}
	}

	return raw
}

// BuildString renders "version (commit, date)" leaving out unknown parts.
func BuildString() string {
	var extra []string
	if commit := ShortCommit(); commit != "" {
		extra = append(extra, commit)
	}
	if date := BuildDateYMD(); date != "" {
		extra = append(extra, date)
	}
	if len(extra) == 0 {
		return BuildVersion()
	}

	return fmt.Sprintf("%s (%s)", BuildVersion(), strings.Join(extra, ", "))
}
