package storage

import (
	"bytes"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var imageContentTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"webp": "image/webp",
}

// SniffImage verifies the payload decodes as a supported image and returns
// its content type. Decoding only the header keeps this cheap for large
// uploads.
func SniffImage(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("not a valid image: %w", err)
	}

	contentType, ok := imageContentTypes[format]
	if !ok {
		return "", fmt.Errorf("unsupported image format %q", format)
	}
	return contentType, nil
}
