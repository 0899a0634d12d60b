package anywin

import (
	"errors"
	"fmt"
	"math"

	"github.com/unixpickle/anychar"
)

// Geometry describes how word images are cut into
// windows.
type Geometry struct {
	// Height is the height every image is resized to.
	Height int

	// WindowSize is the width of a window.
	WindowSize int

	// Depth is 1 for grayscale windows, 3 for RGB.
	Depth int

	// Stride is the horizontal distance between two
	// consecutive windows.
	Stride int

	// Drop is the number of windows discarded from each end
	// of a word, since they mostly contain padding.
	Drop int
}

// Validate checks that the geometry is usable.
func (g Geometry) Validate() error {
	if g.Height <= 0 || g.WindowSize <= 0 || g.Stride <= 0 {
		return errors.New("geometry: height, window size and stride must be positive")
	}
	if g.Depth != 1 && g.Depth != 3 {
		return fmt.Errorf("geometry: unsupported depth %d", g.Depth)
	}
	if g.Drop < 0 {
		return errors.New("geometry: negative drop margin")
	}
	return nil
}

// WindowLen returns the number of bytes in one window.
func (g Geometry) WindowLen() int {
	return g.Height * g.WindowSize * g.Depth
}

// RawTime returns the number of windows needed to slide
// a window fully across an image of the given width,
// including the partial windows on both ends.
func (g Geometry) RawTime(width int) int {
	return int(math.Ceil(float64(width+g.WindowSize)/float64(g.Stride) - 1))
}

// ValidTime returns the number of windows kept after the
// drop margins are discarded.
// The result may be negative for very narrow images.
func (g Geometry) ValidTime(width int) int {
	return g.RawTime(width) - 2*g.Drop
}

// Window cuts the raw window j out of an image which has
// already been resized to the geometry's height.
//
// Columns of the window that fall outside the image are
// filled with copies of the nearest image column.
func (g Geometry) Window(img *Image, j int) *Image {
	res := NewImage(g.WindowSize, g.Height, g.Depth)
	start1, end1, start2, end2 := g.spans(img.Width, j)
	rowLen := g.WindowSize * g.Depth
	for y := 0; y < g.Height; y++ {
		src := img.Pix[img.index(start1, y):img.index(end1, y)]
		row := res.Pix[y*rowLen : (y+1)*rowLen]
		copy(row[start2*g.Depth:end2*g.Depth], src)
		first := row[start2*g.Depth : (start2+1)*g.Depth]
		for x := 0; x < start2; x++ {
			copy(row[x*g.Depth:], first)
		}
		last := row[(end2-1)*g.Depth : end2*g.Depth]
		for x := end2; x < g.WindowSize; x++ {
			copy(row[x*g.Depth:], last)
		}
	}
	return res
}

// spans computes the source columns [start1, end1) and
// the destination columns [start2, end2) of window j.
func (g Geometry) spans(width, j int) (start1, end1, start2, end2 int) {
	right := (j + 1) * g.Stride
	start1 = maxInt(right-g.WindowSize, 0)
	end1 = minInt(right, width)
	start2 = maxInt(g.WindowSize-right, 0)
	end2 = minInt(start2+end1-start1, g.WindowSize)
	return
}

// A WindowedExample is a word cut into windows.
type WindowedExample struct {
	// Windows stores the valid windows, each of length
	// Geometry.WindowLen().
	Windows [][]uint8

	// Labels stores one class index per character.
	Labels []int

	// Time is the number of valid windows.
	Time int
}

// A GeometryError indicates that a word has too few
// windows for its transcription.
type GeometryError struct {
	Index     int
	Path      string
	Word      string
	ValidTime int
}

// Error returns a description naming the example.
func (g *GeometryError) Error() string {
	return fmt.Sprintf("example %d (%s): %d windows cannot fit word %q of %d characters",
		g.Index, g.Path, g.ValidTime, g.Word, len([]rune(g.Word)))
}

// An Encoder turns word images into WindowedExamples.
type Encoder struct {
	Geometry Geometry
	Charset  anychar.Charset

	// Visualize, if non-nil, is called for every kept raw
	// window of every example.
	Visualize func(example, j int, window *Image)
}

// Encode windows a word image.
//
// The image may have any size and depth; it is resized to
// the geometry's height and converted to the geometry's
// depth first.
// The index and path only serve to identify the example
// in errors and visualizations.
func (e *Encoder) Encode(index int, path string, img *Image, word string) (*WindowedExample,
	error) {
	g := e.Geometry
	resized := ResizeHeight(img, g.Height)
	if g.Depth == 1 {
		resized = resized.Gray()
	} else if resized.Depth != g.Depth {
		return nil, fmt.Errorf("example %d (%s): image depth %d does not match %d",
			index, path, resized.Depth, g.Depth)
	}

	rawTime := g.RawTime(resized.Width)
	validTime := rawTime - 2*g.Drop
	wordLen := len([]rune(word))
	if validTime <= wordLen {
		return nil, &GeometryError{Index: index, Path: path, Word: word, ValidTime: validTime}
	}

	labels, err := anychar.EncodeWord(e.Charset, word)
	if err != nil {
		return nil, fmt.Errorf("example %d (%s): %s", index, path, err)
	}

	res := &WindowedExample{Labels: labels, Time: validTime}
	for j := g.Drop; j < rawTime-g.Drop; j++ {
		window := g.Window(resized, j)
		if e.Visualize != nil {
			e.Visualize(index, j, window)
		}
		res.Windows = append(res.Windows, window.Pix)
	}
	return res, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
