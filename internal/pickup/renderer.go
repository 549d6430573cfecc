package pickup

import (
	"bytes"
	"fmt"

	"github.com/yeqown/go-qrcode"
)

// Renderer encodes a pickup code into a scannable image.
type Renderer interface {
	// Render returns the encoded image bytes.
	Render(code string) ([]byte, error)

	// ContentType is the MIME type of rendered images.
	ContentType() string

	// Extension is the file extension of rendered images, without the dot.
	Extension() string
}

// qrRenderer renders pickup codes as JPEG QR codes.
type qrRenderer struct{}

// NewQRRenderer creates a renderer whose QR payload is the pickup code itself.
func NewQRRenderer() Renderer {
	return qrRenderer{}
}

func (qrRenderer) Render(code string) ([]byte, error) {
	qrc, err := qrcode.New(code)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pickup code: %w", err)
	}

	var buf bytes.Buffer
	if err := qrc.SaveTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pickup code: %w", err)
	}
	return buf.Bytes(), nil
}

func (qrRenderer) ContentType() string { return "image/jpeg" }

func (qrRenderer) Extension() string { return "jpeg" }
