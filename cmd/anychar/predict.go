package main

import (
	"flag"
	"fmt"
	"path/filepath"

	"github.com/unixpickle/anychar"
	"github.com/unixpickle/anychar/anyckpt"
	"github.com/unixpickle/anychar/anywin"
)

// Predict classifies the windows of a container with a
// saved model and prints the decoded words.
func Predict(args []string) error {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	var dataPath, slotName string
	var limit int
	fs.StringVar(&dataPath, "data", "", "container path (default: test container)")
	fs.StringVar(&slotName, "slot", anyckpt.BestAccuracy.String(), "checkpoint slot")
	fs.IntVar(&limit, "n", 20, "maximum number of examples (0 for all)")
	cfg, err := parseConfig(fs, args)
	if err != nil {
		return err
	}
	if dataPath == "" {
		dataPath = filepath.Join(cfg.DatasetDir(), testContainer)
	}
	slot, err := anyckpt.ParseSlot(slotName)
	if err != nil {
		return err
	}
	charset, err := cfg.Charset()
	if err != nil {
		return err
	}

	dataset, err := anywin.LoadDataset(dataPath)
	if err != nil {
		return err
	}
	g := dataset.Geometry
	if g.Height != cfg.Height || g.WindowSize != cfg.WindowSize || g.Depth != cfg.Depth {
		return fmt.Errorf("predict: container windows are %dx%dx%d but the model "+
			"expects %dx%dx%d", g.WindowSize, g.Height, g.Depth, cfg.WindowSize,
			cfg.Height, cfg.Depth)
	}

	model, err := newModel(cfg)
	if err != nil {
		return err
	}
	store := &anyckpt.Store{Dir: cfg.CkptDir}
	if found, err := store.RestoreModel(model, slot); err != nil {
		return err
	} else if !found {
		return fmt.Errorf("predict: no %s checkpoint in %s", slot, cfg.CkptDir)
	}

	n := dataset.Len()
	if limit > 0 && limit < n {
		n = limit
	}
	for i := 0; i < n; i++ {
		ex := dataset.Example(i)
		guess := decode(charset, collapse(model.Predict(ex.Windows)))
		actual := decode(charset, ex.Labels)
		fmt.Printf("%d: %s (actual %s)\n", i, guess, actual)
	}
	return nil
}

// collapse merges runs of equal classes.
func collapse(classes []int) []int {
	var res []int
	for i, c := range classes {
		if i == 0 || c != classes[i-1] {
			res = append(res, c)
		}
	}
	return res
}

func decode(c anychar.Charset, classes []int) string {
	var res []rune
	for _, class := range classes {
		if class < c.Len() {
			res = append(res, c.Rune(class))
		} else {
			res = append(res, '?')
		}
	}
	return string(res)
}
