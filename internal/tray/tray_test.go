package tray

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/skobkin/presencego/internal/connectors"
	"github.com/skobkin/presencego/internal/rpc"
)

func TestViewFor(t *testing.T) {
	tests := []struct {
		name         string
		status       connectors.ConnectionStatus
		presence     *rpc.Activity
		wantStatus   string
		wantPresence string
		wantTooltip  string
	}{
		{
			name:         "connected with presence",
			status:       connectors.ConnectionStatus{State: connectors.ConnectionStateConnected, Endpoint: "discord-ipc-0"},
			presence:     &rpc.Activity{Details: "Competitive", State: "In a group", Party: &rpc.Party{Size: []int{2, 5}}},
			wantStatus:   "Connected (discord-ipc-0)",
			wantPresence: "Competitive · In a group (2/5)",
			wantTooltip:  "presencego: Connected (discord-ipc-0)\nCompetitive · In a group (2/5)",
		},
		{
			name:         "waiting without presence",
			status:       connectors.ConnectionStatus{State: connectors.ConnectionStateReconnecting, Err: "peer not found"},
			wantStatus:   "Waiting for Discord: peer not found",
			wantPresence: "No presence",
			wantTooltip:  "presencego: Waiting for Discord: peer not found",
		},
		{
			name:         "presence with only assets",
			status:       connectors.ConnectionStatus{State: connectors.ConnectionStateConnected},
			presence:     &rpc.Activity{Assets: &rpc.Assets{LargeImage: "logo"}},
			wantStatus:   "Connected",
			wantPresence: "Presence set",
			wantTooltip:  "presencego: Connected\nPresence set",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := viewFor(tc.status, tc.presence)
			if got.Status != tc.wantStatus || got.Presence != tc.wantPresence || got.Tooltip != tc.wantTooltip {
				t.Fatalf("unexpected view %+v", got)
			}
		})
	}
}

func TestPresenceLabelTruncates(t *testing.T) {
	label := presenceLabel(&rpc.Activity{Details: strings.Repeat("x", 100)})
	if n := len([]rune(label)); n != maxTitleLen {
		t.Fatalf("expected %d runes, got %d", maxTitleLen, n)
	}
	if !strings.HasSuffix(label, "…") {
		t.Fatalf("expected ellipsis, got %q", label)
	}
}

func TestStatusIconColors(t *testing.T) {
	tests := map[connectors.ConnectionState]struct{ r, g, b uint8 }{
		connectors.ConnectionStateConnected:    {colorConnected.R, colorConnected.G, colorConnected.B},
		connectors.ConnectionStateReconnecting: {colorConnecting.R, colorConnecting.G, colorConnecting.B},
		connectors.ConnectionStateDisconnected: {colorOffline.R, colorOffline.G, colorOffline.B},
	}

	for state, want := range tests {
		img := disc(iconSize, stateColor(state))
		center := img.RGBAAt(iconSize/2, iconSize/2)
		if center.R != want.r || center.G != want.g || center.B != want.b || center.A != 0xff {
			t.Fatalf("%s: unexpected center pixel %+v", state, center)
		}
		if corner := img.RGBAAt(0, 0); corner.A != 0 {
			t.Fatalf("%s: expected transparent corner, got %+v", state, corner)
		}
	}
}

func TestEncodeIcon(t *testing.T) {
	img := disc(iconSize, colorConnected)

	data, err := encodeIcon("linux", img)
	if err != nil {
		t.Fatalf("encode png: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != iconSize || b.Dy() != iconSize {
		t.Fatalf("unexpected icon bounds %v", b)
	}

	data, err = encodeIcon("windows", img)
	if err != nil {
		t.Fatalf("encode ico: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0, 0, 1, 0}) {
		t.Fatalf("expected ICO header, got % x", data[:4])
	}
}

func TestUpdateLabel(t *testing.T) {
	tests := []struct {
		name     string
		snapshot connectors.UpdateSnapshot
		want     string
		wantOK   bool
	}{
		{
			name:     "newer release",
			snapshot: connectors.UpdateSnapshot{UpdateAvailable: true, Latest: connectors.ReleaseInfo{Version: "0.3.0", HTMLURL: "https://example.com/r/0.3.0"}},
			want:     "Update available: 0.3.0",
			wantOK:   true,
		},
		{
			name:     "up to date",
			snapshot: connectors.UpdateSnapshot{Latest: connectors.ReleaseInfo{Version: "0.2.0", HTMLURL: "https://example.com/r/0.2.0"}},
		},
		{
			name:     "no release page",
			snapshot: connectors.UpdateSnapshot{UpdateAvailable: true, Latest: connectors.ReleaseInfo{Version: "0.3.0"}},
		},
	}

	for _, tc := range tests {
		got, ok := updateLabel(tc.snapshot)
		if got != tc.want || ok != tc.wantOK {
			t.Fatalf("%s: updateLabel() = %q, %v", tc.name, got, ok)
		}
	}
}
