package vision

import (
	"image"

	"github.com/disintegration/imaging"
)

// MaskFromImage converts img to a binary foreground mask: pixels whose
// grayscale value is above threshold become 255, all others 0. The result
// always has its origin at (0, 0).
func MaskFromImage(img image.Image, threshold uint8) *image.Gray {
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	mask := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()*4]
		dst := mask.Pix[y*mask.Stride : y*mask.Stride+b.Dx()]
		for x := range dst {
			if src[x*4] > threshold {
				dst[x] = 255
			}
		}
	}
	return mask
}
