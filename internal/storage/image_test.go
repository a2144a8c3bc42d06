package storage

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSniffImage(t *testing.T) {
	t.Parallel()

	t.Run("accepts png", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))

		contentType, err := SniffImage(buf.Bytes())
		require.NoError(t, err)
		require.Equal(t, "image/png", contentType)
	})

	t.Run("rejects non-image data", func(t *testing.T) {
		_, err := SniffImage([]byte("#!/bin/sh\nrm -rf /"))
		require.Error(t, err)
	})

	t.Run("rejects empty payload", func(t *testing.T) {
		_, err := SniffImage(nil)
		require.Error(t, err)
	})
}
