// Package anysrc reads the word-image indexes of the
// supported datasets.
package anysrc

import "path/filepath"

// A Box is a character bounding box in source image
// pixels.
type Box struct {
	X, Y, Width, Height float64
}

// An Example is a word image paired with its
// transcription.
type Example struct {
	// Path is the image file, relative to the dataset
	// directory.
	Path string

	Word string

	// Boxes has one entry per character of Word, or is nil
	// if the dataset does not annotate characters.
	Boxes []Box
}

// ImagePath joins the example path with the dataset
// directory.
func (e *Example) ImagePath(dir string) string {
	return filepath.Join(dir, e.Path)
}

// A Split selects the training or testing part of a
// dataset.
type Split int

const (
	Train Split = iota
	Test
)

// String returns "train" or "test".
func (s Split) String() string {
	if s == Test {
		return "test"
	}
	return "train"
}

// Truncate limits a list to at most n examples.
// If n is not positive, the list is returned unchanged.
func Truncate(examples []*Example, n int) []*Example {
	if n <= 0 || n >= len(examples) {
		return examples
	}
	return examples[:n]
}

// UniformBoxes splits the width of an image evenly among
// the characters of a word.
// The boxes span the full image height.
func UniformBoxes(word []rune, width, height int) []Box {
	if len(word) == 0 {
		return nil
	}
	step := float64(width) / float64(len(word))
	res := make([]Box, len(word))
	for i := range res {
		res[i] = Box{X: step * float64(i), Width: step, Height: float64(height)}
	}
	return res
}
