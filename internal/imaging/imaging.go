package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// JPEGQuality matches the encoder default most image tools use.
const JPEGQuality = jpeg.DefaultQuality

const dataURIPrefix = "data:image/"

var ErrNotDataURI = errors.New("not an image data URI")

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".webp": true,
}

// IsImagePath reports whether s names a file with a supported image extension.
func IsImagePath(s string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(strings.TrimSpace(s)))]
}

// IsDataURI reports whether s looks like a base64 image data URI.
func IsDataURI(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, dataURIPrefix) && strings.Contains(s, ";base64,")
}

func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// DecodeDataURI decodes a data:image/...;base64, URI.
func DecodeDataURI(s string) (image.Image, error) {
	s = strings.TrimSpace(s)
	if !IsDataURI(s) {
		return nil, ErrNotDataURI
	}
	payload := s[strings.Index(s, ";base64,")+len(";base64,"):]
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	return Decode(data)
}

// ResizeLongestEdge scales img down so its longest side is edge pixels.
// Images already within the bound are returned as is.
func ResizeLongestEdge(img image.Image, edge int) image.Image {
	if edge <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := max(w, h)
	if longest <= edge {
		return img
	}

	nw := max(1, int(float64(w)*float64(edge)/float64(longest)+0.5))
	nh := max(1, int(float64(h)*float64(edge)/float64(longest)+0.5))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// EncodeJPEG writes img as JPEG. Transparent pixels are flattened onto white.
func EncodeJPEG(w io.Writer, img image.Image) error {
	return jpeg.Encode(w, flatten(img), &jpeg.Options{Quality: JPEGQuality})
}

func EncodeBase64JPEG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := EncodeJPEG(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}
