// Package qr renders payloads as QR images and extracts payloads from them.
package qr

import (
	"errors"
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	zxqrcode "github.com/makiuchi-d/gozxing/qrcode"
	qrcode "github.com/skip2/go-qrcode"
)

// ErrNotFound indicates no QR code was located in the image.
var ErrNotFound = errors.New("no QR code found in image")

// Render encodes payload bytes into a PNG QR image of the given pixel size.
func Render(payload []byte, size int) ([]byte, error) {
	png, err := qrcode.Encode(string(payload), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("render QR: %w", err)
	}
	return png, nil
}

// DecodeImage locates and decodes a QR code in a still image, returning the
// raw payload bytes. Single attempt: returns ErrNotFound when no code is
// present or readable.
func DecodeImage(img image.Image) ([]byte, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("prepare bitmap: %w", err)
	}
	result, err := zxqrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return nil, ErrNotFound
	}
	return []byte(result.GetText()), nil
}
