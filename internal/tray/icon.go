package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"runtime"

	ico "github.com/sergeymakinen/go-ico"

	"github.com/skobkin/presencego/internal/connectors"
)

const iconSize = 32

var (
	colorConnected  = color.RGBA{R: 0x3b, G: 0xa5, B: 0x5c, A: 0xff}
	colorConnecting = color.RGBA{R: 0xfa, G: 0xa6, B: 0x1a, A: 0xff}
	colorOffline    = color.RGBA{R: 0x74, G: 0x7f, B: 0x8d, A: 0xff}
)

func stateColor(state connectors.ConnectionState) color.RGBA {
	switch state {
	case connectors.ConnectionStateConnected:
		return colorConnected
	case connectors.ConnectionStateConnecting, connectors.ConnectionStateReconnecting:
		return colorConnecting
	default:
		return colorOffline
	}
}

// statusIcon is a filled disc in the state color. Windows wants ICO, everything else PNG.
func statusIcon(state connectors.ConnectionState) ([]byte, error) {
	return encodeIcon(runtime.GOOS, disc(iconSize, stateColor(state)))
}

func encodeIcon(goos string, img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	encode := png.Encode
	if goos == "windows" {
		encode = ico.Encode
	}
	if err := encode(&buf, img); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func disc(size int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	r := float64(size)/2 - 1
	center := float64(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)+0.5-center, float64(y)+0.5-center
			if dx*dx+dy*dy <= r*r {
				img.SetRGBA(x, y, c)
			}
		}
	}

	return img
}
