package crop

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "github.com/chai2010/webp"

	"catalog-ingest/internal/domain"
)

// Decode parses raster bytes in any supported container (JPEG, PNG, GIF, WebP).
func Decode(data []byte) (image.Image, domain.ImageFormat, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}

	switch format {
	case "jpeg":
		return img, domain.FormatJPEG, nil
	case "png":
		return img, domain.FormatPNG, nil
	case "gif":
		return img, domain.FormatGIF, nil
	case "webp":
		return img, domain.FormatWebP, nil
	default:
		return nil, "", fmt.Errorf("%w: unsupported format %q", domain.ErrDecode, format)
	}
}
