package main

import (
	"flag"
	"log"
	"path/filepath"

	"github.com/unixpickle/anychar/anysrc"
	"github.com/unixpickle/anychar/anywin"
	"github.com/unixpickle/essentials"
)

// Preproc windows both splits of the dataset and writes
// them to containers in the dataset directory.
func Preproc(args []string) error {
	cfg, err := parseConfig(flag.NewFlagSet("preproc", flag.ExitOnError), args)
	if err != nil {
		return err
	}
	charset, err := cfg.Charset()
	if err != nil {
		return err
	}
	geometry := anywin.Geometry{
		Height:     cfg.Height,
		WindowSize: cfg.WindowSize,
		Depth:      cfg.Depth,
		Stride:     cfg.Stride,
		Drop:       cfg.DropMargin,
	}
	if err := geometry.Validate(); err != nil {
		return err
	}
	encoder := &anywin.Encoder{Geometry: geometry, Charset: charset}

	trainExamples, err := loadExamples(cfg, anysrc.Train)
	if err != nil {
		return err
	}
	testExamples, err := loadExamples(cfg, anysrc.Test)
	if err != nil {
		return err
	}

	if cfg.Visualize {
		v := &anywin.Visualizer{Dir: cfg.VisualizeDir}
		encoder.Visualize, err = v.Func()
		if err != nil {
			return err
		}
	}
	log.Println("Windowing training examples...")
	trainWindowed, err := encoder.EncodeAll(cfg.DatasetDir(), trainExamples)
	if err != nil {
		return essentials.AddCtx("preproc train", err)
	}
	encoder.Visualize = nil
	log.Println("Windowing test examples...")
	testWindowed, err := encoder.EncodeAll(cfg.DatasetDir(), testExamples)
	if err != nil {
		return essentials.AddCtx("preproc test", err)
	}

	maxTime := anywin.MaxTime(trainWindowed, testWindowed)
	log.Printf("Max time: %d", maxTime)
	for _, split := range []struct {
		Name     string
		Examples []*anywin.WindowedExample
	}{
		{trainContainer, trainWindowed},
		{testContainer, testWindowed},
	} {
		dataset, err := anywin.NewDataset(geometry, maxTime, split.Examples)
		if err != nil {
			return essentials.AddCtx("preproc "+split.Name, err)
		}
		path := filepath.Join(cfg.DatasetDir(), split.Name)
		if err := dataset.Save(path); err != nil {
			return err
		}
		log.Printf("Saved %d examples to %s.", dataset.Len(), path)
	}
	return nil
}
