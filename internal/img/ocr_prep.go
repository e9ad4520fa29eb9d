package img

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/disintegration/imaging"
)

type Prepared struct {
	Bytes []byte
	MIME  string
}

// PrepareForOCR: resize → grayscale (optional) → low quality JPEG, keeping
// vision-model token cost down for image documents.
func PrepareForOCR(path string, maxW, quality int, grayscale bool) (Prepared, error) {
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return Prepared{}, err
	}

	if src.Bounds().Dx() > maxW && maxW > 0 {
		src = imaging.Resize(src, maxW, 0, imaging.Lanczos)
	}

	if grayscale {
		src = imaging.Grayscale(src)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, forceOpaque(src), &jpeg.Options{Quality: clamp(quality, 40, 85)}); err != nil {
		return Prepared{}, err
	}
	return Prepared{Bytes: buf.Bytes(), MIME: "image/jpeg"}, nil
}

// convert alpha to white (avoid unnecessary alpha cost)
func forceOpaque(img image.Image) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	bg := color.White
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if a == 0 {
				dst.Set(x, y, bg)
			} else {
				dst.SetRGBA(x, y, color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(bl >> 8), 0xff})
			}
		}
	}
	return dst
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
