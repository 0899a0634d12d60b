package main

import (
	"flag"
	"io/ioutil"
	"log"

	"github.com/google/uuid"
	"github.com/unixpickle/anychar"
	"github.com/unixpickle/anychar/anybatch"
	"github.com/unixpickle/anychar/anyckpt"
	"github.com/unixpickle/anychar/anymodel"
	"github.com/unixpickle/anychar/anysrc"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/essentials"
)

// trainDropout is the dropout rate used for training
// steps.
const trainDropout = 1

// Train fits a character classifier, or evaluates one in
// test-only mode.
func Train(args []string) error {
	cfg, err := parseConfig(flag.NewFlagSet("train", flag.ExitOnError), args)
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	log.Printf("Run %s", runID)

	model, err := newModel(cfg)
	if err != nil {
		return err
	}
	charset, err := cfg.Charset()
	if err != nil {
		return err
	}
	loader := &anybatch.Loader{
		Dir:     cfg.DatasetDir(),
		Height:  cfg.Height,
		Depth:   cfg.Depth,
		Charset: charset,
		MaxGos:  cfg.Workers,
	}

	var trainSamples []*anybatch.CharSample
	if !cfg.TestOnly {
		trainSamples, err = loadSamples(cfg, loader, anysrc.Train)
		if err != nil {
			return err
		}
	}
	testSamples, err := loadSamples(cfg, loader, anysrc.Test)
	if err != nil {
		return err
	}

	c := &anyckpt.Controller{
		Model: model,
		Store: &anyckpt.Store{Dir: cfg.CkptDir},
		Train: &anybatch.CharIterator{
			Samples:   trainSamples,
			Width:     cfg.WindowSize,
			Height:    cfg.Height,
			BatchSize: cfg.BatchSize,
			NumEpochs: cfg.NumEpochs,
			Jitter:    cfg.JitteringPercent,
			Shuffle:   true,
		},
		NewTestIterator: func() (anybatch.Iterator, error) {
			return &anybatch.CharIterator{
				Samples:   testSamples,
				Width:     cfg.WindowSize,
				Height:    cfg.Height,
				BatchSize: cfg.BatchSize,
				NumEpochs: 1,
			}, nil
		},
		EvalEvery: cfg.EvalEvery,
		TestOnly:  cfg.TestOnly,
		Dropout:   trainDropout,
		RunID:     runID,
	}
	return c.Run()
}

func newModel(cfg *anychar.Config) (*anymodel.Model, error) {
	opts := &anymodel.Options{
		Width:        cfg.WindowSize,
		Height:       cfg.Height,
		Depth:        cfg.Depth,
		NumClasses:   cfg.EmbedSize,
		LearningRate: cfg.LR,
		UseSTN:       cfg.UseSTN,
	}
	if cfg.CNNMarkup != "" {
		code, err := ioutil.ReadFile(cfg.CNNMarkup)
		if err != nil {
			return nil, essentials.AddCtx("read CNN markup", err)
		}
		opts.CNNMarkup = string(code)
	}
	return anymodel.New(anyvec32.CurrentCreator(), opts)
}

func loadSamples(cfg *anychar.Config, l *anybatch.Loader,
	s anysrc.Split) ([]*anybatch.CharSample, error) {
	examples, err := loadExamples(cfg, s)
	if err != nil {
		return nil, err
	}
	samples, err := l.Load(examples)
	if err != nil {
		return nil, essentials.AddCtx("load "+s.String()+" samples", err)
	}
	log.Printf("Loaded %d %s characters.", len(samples), s)
	return samples, nil
}
