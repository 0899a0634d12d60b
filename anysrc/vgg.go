package anysrc

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/unixpickle/essentials"
)

// VGGIndexFile returns the name of the VGG synthetic
// word annotation file for a split.
func VGGIndexFile(s Split) string {
	if s == Test {
		return "annotation_test.txt"
	}
	return "annotation_train.txt"
}

// ReadVGG reads one split of the VGG synthetic word
// dataset.
//
// Each annotation line looks like
// "./2911/6/77_heretical_35885.jpg 35885"; the word is
// the middle part of the file name.
// VGG examples carry no character boxes.
func ReadVGG(dir string, s Split) ([]*Example, error) {
	indexPath := filepath.Join(dir, VGGIndexFile(s))
	f, err := os.Open(indexPath)
	if err != nil {
		return nil, essentials.AddCtx("read VGG", err)
	}
	defer f.Close()

	var res []*Example
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ex, err := parseVGGLine(line)
		if err != nil {
			return nil, essentials.AddCtx(fmt.Sprintf("read VGG %s:%d", indexPath, lineNum),
				err)
		}
		res = append(res, ex)
	}
	if err := scanner.Err(); err != nil {
		return nil, essentials.AddCtx("read VGG "+indexPath, err)
	}
	return res, nil
}

func parseVGGLine(line string) (*Example, error) {
	imgPath := strings.Fields(line)[0]
	base := strings.TrimSuffix(path.Base(imgPath), path.Ext(imgPath))
	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return nil, errors.New("unexpected file name: " + imgPath)
	}
	word := strings.Join(parts[1:len(parts)-1], "_")
	return &Example{Path: filepath.FromSlash(path.Clean(imgPath)), Word: word}, nil
}

// Read reads a split of either dataset.
func Read(dir string, iiit5k bool, s Split) ([]*Example, error) {
	if iiit5k {
		return ReadIIIT5K(dir, s)
	}
	return ReadVGG(dir, s)
}
