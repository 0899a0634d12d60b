package anysrc

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"unicode/utf8"

	"github.com/unixpickle/essentials"
)

type iiit5kEntry struct {
	ImgName string      `json:"ImgName"`
	Chars   string      `json:"chars"`
	CharBB  [][]float64 `json:"charBB"`
}

// IIIT5KIndexFile returns the name of the IIIT5K index
// file for a split.
func IIIT5KIndexFile(s Split) string {
	if s == Test {
		return "testCharBound.json"
	}
	return "trainCharBound.json"
}

// ReadIIIT5K reads the character-bound index of one split
// of the IIIT5K dataset.
//
// The index is a JSON export of the dataset's
// CharBound.mat files: an array of objects with ImgName,
// chars and charBB fields, where charBB holds one
// [x, y, w, h] entry per character.
func ReadIIIT5K(dir string, s Split) ([]*Example, error) {
	path := filepath.Join(dir, IIIT5KIndexFile(s))
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("read IIIT5K", err)
	}
	var entries []iiit5kEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, essentials.AddCtx("read IIIT5K "+path, err)
	}
	res := make([]*Example, len(entries))
	for i, e := range entries {
		ex, err := e.example()
		if err != nil {
			return nil, essentials.AddCtx(fmt.Sprintf("read IIIT5K %s: entry %d", path, i),
				err)
		}
		res[i] = ex
	}
	return res, nil
}

func (i *iiit5kEntry) example() (*Example, error) {
	if i.ImgName == "" {
		return nil, fmt.Errorf("missing ImgName")
	}
	if i.CharBB == nil {
		return &Example{Path: i.ImgName, Word: i.Chars}, nil
	}
	if len(i.CharBB) != utf8.RuneCountInString(i.Chars) {
		return nil, fmt.Errorf("%d boxes for word %q", len(i.CharBB), i.Chars)
	}
	boxes := make([]Box, len(i.CharBB))
	for j, bb := range i.CharBB {
		if len(bb) != 4 {
			return nil, fmt.Errorf("box %d should have 4 values but has %d", j, len(bb))
		}
		boxes[j] = Box{X: bb[0], Y: bb[1], Width: bb[2], Height: bb[3]}
	}
	return &Example{Path: i.ImgName, Word: i.Chars, Boxes: boxes}, nil
}
