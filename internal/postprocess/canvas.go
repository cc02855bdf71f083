package postprocess

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// FitCanvas crops the image to its opaque bounds, scales it to fill
// fillRatio of a square canvas, and centers it, giving batch previews a
// uniform composition regardless of mesh aspect.
func FitCanvas(img *image.NRGBA, size int, fillRatio float64) *image.NRGBA {
	if fillRatio <= 0 || fillRatio > 1 {
		fillRatio = 0.9
	}
	return scaleAndCenter(cropOpaque(img), size, fillRatio)
}

// cropOpaque returns the tight crop around nonzero-alpha pixels. A fully
// transparent image comes back unchanged.
func cropOpaque(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	minX, minY := w, h
	maxX, maxY := -1, -1
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if img.Pix[y*img.Stride+x*4+3] > 0 {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if maxX < minX || maxY < minY {
		return img
	}

	cw := maxX - minX + 1
	ch := maxY - minY + 1
	out := image.NewNRGBA(image.Rect(0, 0, cw, ch))
	for y := 0; y < ch; y++ {
		src := (minY+y)*img.Stride + minX*4
		dst := y * out.Stride
		copy(out.Pix[dst:dst+cw*4], img.Pix[src:src+cw*4])
	}
	return out
}

func scaleAndCenter(img *image.NRGBA, canvasSize int, fillRatio float64) *image.NRGBA {
	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	canvas := image.NewNRGBA(image.Rect(0, 0, canvasSize, canvasSize))
	if srcW == 0 || srcH == 0 {
		return canvas
	}

	target := float64(canvasSize) * fillRatio
	s := target / math.Max(float64(srcW), float64(srcH))
	newW := int(float64(srcW)*s + 0.5)
	newH := int(float64(srcH)*s + 0.5)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	offX := (canvasSize - newW) / 2
	offY := (canvasSize - newH) / 2
	dstRect := image.Rect(offX, offY, offX+newW, offY+newH)
	draw.CatmullRom.Scale(canvas, dstRect, img, b, draw.Src, nil)
	return canvas
}

// FlipHorizontal mirrors left-to-right: radiological display convention
// puts the patient's left on the image's right.
func FlipHorizontal(img *image.NRGBA) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := y * img.Stride
		dst := y * out.Stride
		for x := 0; x < w; x++ {
			si := src + (w-1-x)*4
			di := dst + x*4
			copy(out.Pix[di:di+4], img.Pix[si:si+4])
		}
	}
	return out
}
