package anywin

import "math"

// ResizeHeight scales an image to the given height,
// keeping its aspect ratio.
//
// The new width is round(height*w/h), and is at least 1.
func ResizeHeight(img *Image, height int) *Image {
	w := int(math.Round(float64(height) * float64(img.Width) / float64(img.Height)))
	if w < 1 {
		w = 1
	}
	return Resize(img, w, height)
}

// Resize scales an image using bilinear interpolation.
//
// Corner pixels of the output line up with corner pixels
// of the input.
func Resize(img *Image, width, height int) *Image {
	res := NewImage(width, height, img.Depth)
	xScale := resizeScale(img.Width, width)
	yScale := resizeScale(img.Height, height)
	idx := 0
	for y := 0; y < height; y++ {
		sourceY := yScale * float64(y)
		for x := 0; x < width; x++ {
			sourceX := xScale * float64(x)
			neighbors, amounts := resizeNeighbors(img, sourceX, sourceY)
			for z := 0; z < img.Depth; z++ {
				var sum float64
				for i, n := range neighbors {
					sum += amounts[i] * float64(img.Pix[n+z])
				}
				res.Pix[idx] = clampByte(sum)
				idx++
			}
		}
	}
	return res
}

func resizeScale(in, out int) float64 {
	if out <= 1 {
		return 0
	}
	return float64(in-1) / float64(out-1)
}

func resizeNeighbors(img *Image, sx, sy float64) ([4]int, [4]float64) {
	if sx > float64(img.Width-1) {
		sx = float64(img.Width - 1)
	}
	if sy > float64(img.Height-1) {
		sy = float64(img.Height - 1)
	}
	x1, x2 := int(sx), int(sx+1)
	y1, y2 := int(sy), int(sy+1)
	if x2 >= img.Width {
		x2 = img.Width - 1
	}
	if y2 >= img.Height {
		y2 = img.Height - 1
	}

	x1A := 1 - (sx - float64(x1))
	y1A := 1 - (sy - float64(y1))

	return [4]int{
			img.index(x1, y1),
			img.index(x2, y1),
			img.index(x1, y2),
			img.index(x2, y2),
		}, [4]float64{
			x1A * y1A,
			(1 - x1A) * y1A,
			x1A * (1 - y1A),
			(1 - x1A) * (1 - y1A),
		}
}
