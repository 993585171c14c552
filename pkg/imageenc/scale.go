package imageenc

import (
	"image"

	"golang.org/x/image/draw"
)

// ToNRGBA returns img as *image.NRGBA, converting if needed.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Fit scales img down so neither side exceeds maxDim. Scaling happens in
// premultiplied alpha so transparent texels do not darken their
// neighbours. img is returned unchanged when it already fits.
func Fit(img *image.NRGBA, maxDim int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}
	if w >= h {
		w, h = maxDim, max(1, h*maxDim/w)
	} else {
		w, h = max(1, w*maxDim/h), maxDim
	}

	premul := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			si := img.PixOffset(x, y)
			di := premul.PixOffset(x, y)
			a := float64(img.Pix[si+3]) / 255.0
			premul.Pix[di] = uint8(float64(img.Pix[si])*a + 0.5)
			premul.Pix[di+1] = uint8(float64(img.Pix[si+1])*a + 0.5)
			premul.Pix[di+2] = uint8(float64(img.Pix[si+2])*a + 0.5)
			premul.Pix[di+3] = img.Pix[si+3]
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), premul, premul.Bounds(), draw.Src, nil)

	out := image.NewNRGBA(dst.Bounds())
	for i := 0; i < len(dst.Pix); i += 4 {
		a := float64(dst.Pix[i+3])
		if a > 0 {
			inv := 255.0 / a
			out.Pix[i] = clamp8(float64(dst.Pix[i]) * inv)
			out.Pix[i+1] = clamp8(float64(dst.Pix[i+1]) * inv)
			out.Pix[i+2] = clamp8(float64(dst.Pix[i+2]) * inv)
		}
		out.Pix[i+3] = dst.Pix[i+3]
	}
	return out
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
