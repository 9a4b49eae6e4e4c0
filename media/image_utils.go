package media

import (
	"bytes"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

var supportedImageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// IsRasterImage checks if the filename has a common raster image extension
func IsRasterImage(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return supportedImageExtensions[ext]
}

// DecodeImage decodes raw image bytes, applying the EXIF orientation so the
// face appears upright regardless of how the capture device stored it
func DecodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// ReadCaptureTime extracts the EXIF DateTimeOriginal as a Unix timestamp,
// if the image carries one
func ReadCaptureTime(data []byte) *int64 {
	exifData, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	taken, err := exifData.DateTime()
	if err != nil {
		return nil
	}
	ts := taken.Unix()
	return &ts
}

// CropFace extracts the face region from an image, clamped to the image
// bounds
func CropFace(img image.Image, box BoundingBox) image.Image {
	bounds := img.Bounds()
	rect := image.Rect(
		clampInt(int(box.X1), bounds.Min.X, bounds.Max.X),
		clampInt(int(box.Y1), bounds.Min.Y, bounds.Max.Y),
		clampInt(int(box.X2), bounds.Min.X, bounds.Max.X),
		clampInt(int(box.Y2), bounds.Min.Y, bounds.Max.Y),
	)
	return imaging.Crop(img, rect)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// grayValueAt returns the grayscale intensity (0-255) of a pixel
func grayValueAt(img image.Image, x, y int) float64 {
	r, g, b, _ := img.At(x, y).RGBA()
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 256.0
}

// clampUnit clamps a score to [0,1]
func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// normalizeScore maps a value into [0,1] over the given range
func normalizeScore(value, min, max float64) float64 {
	if max <= min {
		return 0
	}
	return clampUnit((value - min) / (max - min))
}
