package postprocess

import "image"

// Despeckle zeroes out small disconnected opaque regions. Marching cubes
// over a noisy scan emits isolated surface shards that show up as floating
// specks in previews; a region survives only if it reaches minRatio of the
// total opaque pixel count.
func Despeckle(img *image.NRGBA, minRatio float64) *image.NRGBA {
	labels, sizes, total := labelRegions(img)
	if total == 0 || len(sizes) <= 1 {
		return img
	}
	minSize := int(float64(total) * minRatio)
	return eraseRegions(img, labels, func(id int) bool { return sizes[id] < minSize })
}

// KeepLargestRegion erases everything except the largest connected opaque
// region, isolating the main surface from detached fragments.
func KeepLargestRegion(img *image.NRGBA) *image.NRGBA {
	labels, sizes, total := labelRegions(img)
	if total == 0 || len(sizes) <= 1 {
		return img
	}
	best := 0
	for i := 1; i < len(sizes); i++ {
		if sizes[i] > sizes[best] {
			best = i
		}
	}
	return eraseRegions(img, labels, func(id int) bool { return id != best })
}

// labelRegions floods 8-connected regions of nonzero-alpha pixels.
// Returns per-pixel labels (-1 for transparent), region sizes, and the
// opaque pixel count.
func labelRegions(img *image.NRGBA) ([]int, []int, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := img.Stride

	opaque := make([]bool, w*h)
	total := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if img.Pix[y*stride+x*4+3] > 0 {
				opaque[y*w+x] = true
				total++
			}
		}
	}

	labels := make([]int, w*h)
	for i := range labels {
		labels[i] = -1
	}
	var sizes []int

	dx := [8]int{-1, 0, 1, -1, 1, -1, 0, 1}
	dy := [8]int{-1, -1, -1, 0, 0, 1, 1, 1}
	queue := make([]int, 0, 1024)

	for start := range opaque {
		if !opaque[start] || labels[start] >= 0 {
			continue
		}
		id := len(sizes)
		queue = append(queue[:0], start)
		labels[start] = id
		size := 0
		for len(queue) > 0 {
			curr := queue[0]
			queue = queue[1:]
			size++
			cy, cx := curr/w, curr%w
			for d := 0; d < 8; d++ {
				px, py := cx+dx[d], cy+dy[d]
				if px < 0 || px >= w || py < 0 || py >= h {
					continue
				}
				ni := py*w + px
				if opaque[ni] && labels[ni] < 0 {
					labels[ni] = id
					queue = append(queue, ni)
				}
			}
		}
		sizes = append(sizes, size)
	}
	return labels, sizes, total
}

// eraseRegions copies the image with the selected regions blanked out.
func eraseRegions(img *image.NRGBA, labels []int, drop func(int) bool) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := img.Stride
	out := image.NewNRGBA(b)
	copy(out.Pix, img.Pix)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			id := labels[y*w+x]
			if id >= 0 && drop(id) {
				i := y*stride + x*4
				out.Pix[i] = 0
				out.Pix[i+1] = 0
				out.Pix[i+2] = 0
				out.Pix[i+3] = 0
			}
		}
	}
	return out
}
