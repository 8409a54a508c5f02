package vision

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
)

const (
	JPEGMIMEType = "image/jpeg"

	// DefaultJPEGQuality trades detail for upload size; frames are small
	// and the models only need the gist of the scene.
	DefaultJPEGQuality = 40
)

var ErrNoImage = errors.New("no image to encode")

// EncodedImage is a recompressed frame ready to be sent.
type EncodedImage struct {
	MIMEType string
	Data     []byte
}

// Base64 returns the standard base64 encoding of the JPEG bytes.
func (e *EncodedImage) Base64() string {
	return base64.StdEncoding.EncodeToString(e.Data)
}

// EncodeJPEG compresses img to JPEG at the given quality (1-100).
func EncodeJPEG(img image.Image, quality int) (*EncodedImage, error) {
	if img == nil {
		return nil, ErrNoImage
	}
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return &EncodedImage{MIMEType: JPEGMIMEType, Data: buf.Bytes()}, nil
}
