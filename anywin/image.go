package anywin

import (
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/unixpickle/essentials"
)

// An Image is an 8-bit tensor of pixels.
//
// Pixels are row-major depth-minor, so the value at
// (x, y, z) is Pix[z+Depth*(x+Width*y)].
type Image struct {
	Width  int
	Height int
	Depth  int
	Pix    []uint8
}

// NewImage creates a black image.
func NewImage(width, height, depth int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Depth:  depth,
		Pix:    make([]uint8, width*height*depth),
	}
}

// LoadImage decodes a PNG or JPEG file into an RGB Image.
func LoadImage(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, essentials.AddCtx("load image", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, essentials.AddCtx("load image "+path, err)
	}
	return FromImage(img), nil
}

// FromImage converts an image to an RGB Image.
func FromImage(img image.Image) *Image {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	minX := img.Bounds().Min.X
	minY := img.Bounds().Min.Y

	res := NewImage(w, h, 3)
	idx := 0
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(minX+x, minY+y).RGBA()
			for _, comp := range []uint32{r, g, b} {
				res.Pix[idx] = uint8(comp >> 8)
				idx++
			}
		}
	}
	return res
}

// Image converts the tensor back into an image.Image.
// Depth 1 produces a grayscale image, depth 3 an RGB one.
func (i *Image) Image() image.Image {
	rect := image.Rect(0, 0, i.Width, i.Height)
	if i.Depth == 1 {
		res := image.NewGray(rect)
		copy(res.Pix, i.Pix)
		return res
	}
	res := image.NewRGBA(rect)
	for y := 0; y < i.Height; y++ {
		for x := 0; x < i.Width; x++ {
			p := i.Pix[i.index(x, y):]
			res.SetRGBA(x, y, color.RGBA{R: p[0], G: p[1], B: p[2], A: 0xff})
		}
	}
	return res
}

// Gray converts an RGB image to a single channel using
// ITU-R 601 luma weights.
// Images that are already single-channel are returned
// as-is.
func (i *Image) Gray() *Image {
	if i.Depth == 1 {
		return i
	}
	res := NewImage(i.Width, i.Height, 1)
	for j := range res.Pix {
		p := i.Pix[j*i.Depth:]
		luma := 0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])
		res.Pix[j] = clampByte(luma)
	}
	return res
}

// Column returns a copy of the pixels in column x, from
// top to bottom.
func (i *Image) Column(x int) []uint8 {
	res := make([]uint8, 0, i.Height*i.Depth)
	for y := 0; y < i.Height; y++ {
		idx := i.index(x, y)
		res = append(res, i.Pix[idx:idx+i.Depth]...)
	}
	return res
}

// CropColumns returns a copy of the columns in the range
// [start, end).
func (i *Image) CropColumns(start, end int) *Image {
	res := NewImage(end-start, i.Height, i.Depth)
	rowLen := res.Width * i.Depth
	for y := 0; y < i.Height; y++ {
		copy(res.Pix[y*rowLen:(y+1)*rowLen], i.Pix[i.index(start, y):i.index(end, y)])
	}
	return res
}

// SavePNG writes the image to a PNG file.
func (i *Image) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return essentials.AddCtx("save image", err)
	}
	defer f.Close()
	if err := png.Encode(f, i.Image()); err != nil {
		return essentials.AddCtx("save image "+path, err)
	}
	return nil
}

func (i *Image) index(x, y int) int {
	return i.Depth * (x + i.Width*y)
}

func clampByte(x float64) uint8 {
	if x <= 0 {
		return 0
	} else if x >= 0xff {
		return 0xff
	}
	return uint8(x + 0.5)
}
