// Package qr builds ticket validation payloads and renders them as
// scannable PNG images.
package qr

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// maxPayloadLen stays under QR capacity for byte-mode content at the
// error-correction level used here.
const maxPayloadLen = 4000

const (
	defaultForeground = "#8B4513"
	defaultBackground = "#FDF8ED"
)

// EncodePayload builds the validation URL encoded into every ticket's
// QR image. The path shape is load-bearing: changing it invalidates
// all previously issued, unscanned tickets.
func EncodePayload(baseURL, ticketID string) string {
	return strings.TrimRight(baseURL, "/") + "/api/ticket/validate/" + ticketID
}

type RenderOptions struct {
	SizePx        int
	Foreground    string
	Background    string
	DisableBorder bool
}

func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		SizePx:     300,
		Foreground: defaultForeground,
		Background: defaultBackground,
	}
}

// RenderError reports a payload or option that cannot be rendered.
// It fails a single ticket's generation, never a whole batch.
type RenderError struct {
	Reason string
	Err    error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("qr render: %s: %v", e.Reason, e.Err)
	}
	return "qr render: " + e.Reason
}

func (e *RenderError) Unwrap() error { return e.Err }

// Renderer turns a payload string into image bytes.
type Renderer interface {
	Render(payload string, opts RenderOptions) ([]byte, error)
}

// PNGRenderer renders QR codes at error-correction level M, matching
// the codes already in circulation.
type PNGRenderer struct{}

func (PNGRenderer) Render(payload string, opts RenderOptions) ([]byte, error) {
	if payload == "" {
		return nil, &RenderError{Reason: "empty payload"}
	}
	if len(payload) > maxPayloadLen {
		return nil, &RenderError{Reason: fmt.Sprintf("payload exceeds %d bytes", maxPayloadLen)}
	}

	code, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, &RenderError{Reason: "encoding failed", Err: err}
	}

	fg, err := parseHexColor(coalesce(opts.Foreground, defaultForeground))
	if err != nil {
		return nil, &RenderError{Reason: "invalid foreground color", Err: err}
	}
	bg, err := parseHexColor(coalesce(opts.Background, defaultBackground))
	if err != nil {
		return nil, &RenderError{Reason: "invalid background color", Err: err}
	}

	code.ForegroundColor = fg
	code.BackgroundColor = bg
	code.DisableBorder = opts.DisableBorder

	size := opts.SizePx
	if size <= 0 {
		size = DefaultRenderOptions().SizePx
	}

	png, err := code.PNG(size)
	if err != nil {
		return nil, &RenderError{Reason: "png encoding failed", Err: err}
	}
	return png, nil
}

func parseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("expected #RRGGBB, got %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("expected #RRGGBB, got %q", s)
	}
	return color.RGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 0xff,
	}, nil
}

func coalesce(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
