// Package imaging decodes uploaded scans and turns them into model input.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
)

var (
	ErrExtension = errors.New("unsupported file type")
	ErrDecode    = errors.New("invalid image format, supported: JPEG, PNG")
)

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// AllowedFile reports whether the file name has a png/jpg/jpeg extension.
func AllowedFile(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, format, nil
}

// Tensor resizes img to size×size and returns RGB values scaled to [0,1],
// either channel-first (nchw) or channel-last (nhwc).
func Tensor(img image.Image, size int, channelFirst bool) []float32 {
	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height
	data := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			rn := float32(r) / 65535.0
			gn := float32(g) / 65535.0
			bn := float32(b) / 65535.0

			idx := y*width + x
			if channelFirst {
				data[idx] = rn
				data[plane+idx] = gn
				data[2*plane+idx] = bn
			} else {
				data[3*idx] = rn
				data[3*idx+1] = gn
				data[3*idx+2] = bn
			}
		}
	}
	return data
}

// DataURL encodes raw file bytes as a data: URL. The media type is sniffed
// from the content.
func DataURL(data []byte) string {
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}
