package anywin

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/unixpickle/anychar/anysrc"
	"github.com/unixpickle/essentials"
)

// VisualizeLimit is the number of leading examples whose
// windows a Visualizer writes out.
const VisualizeLimit = 50

// A Visualizer writes windows to image files for
// debugging.
type Visualizer struct {
	Dir string

	// Limit is the number of examples to visualize.
	// If it is 0, VisualizeLimit is used.
	Limit int
}

// Func creates a callback for Encoder.Visualize.
//
// The directory is created if needed.
// Write failures are logged and otherwise ignored.
func (v *Visualizer) Func() (func(example, j int, window *Image), error) {
	if err := os.MkdirAll(v.Dir, 0755); err != nil {
		return nil, essentials.AddCtx("visualize", err)
	}
	limit := v.Limit
	if limit == 0 {
		limit = VisualizeLimit
	}
	return func(example, j int, window *Image) {
		if example >= limit {
			return
		}
		path := filepath.Join(v.Dir, fmt.Sprintf("%d_%d.png", example, j))
		if err := window.SavePNG(path); err != nil {
			log.Println("visualize:", err)
		}
	}, nil
}

// EncodeAll loads and windows a list of examples whose
// image paths are relative to dir.
//
// It stops at the first failure, which is a
// *GeometryError when a word does not fit its windows.
func (e *Encoder) EncodeAll(dir string, examples []*anysrc.Example) ([]*WindowedExample,
	error) {
	res := make([]*WindowedExample, len(examples))
	for i, ex := range examples {
		path := ex.ImagePath(dir)
		img, err := LoadImage(path)
		if err != nil {
			return nil, err
		}
		res[i], err = e.Encode(i, path, img, ex.Word)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}
