// Package anymodel implements the character window
// classifier: an optional spatial transformer, followed
// by a convolutional feature extractor, followed by a
// fully-connected output layer.
package anymodel

import (
	"errors"
	"fmt"

	"github.com/unixpickle/anychar/anystn"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyconv"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// Names of the parameter subsets.
const (
	STNParams = "stn"
	CNNParams = "cnn"
	FCParams  = "fc"
)

const (
	// FeatureSize is the number of features that the
	// convolutional network produces.
	FeatureSize = 128

	// DropoutScale converts a dropout rate into a drop
	// probability for the feature layer.
	DropoutScale = 0.5

	// STNRateScale scales the learning rate of the spatial
	// transformer relative to the rest of the network.
	STNRateScale = 0.1

	stnHiddenSize = 32
)

// Options configures a new Model.
type Options struct {
	// Dimensions of a window.
	Width  int
	Height int
	Depth  int

	NumClasses   int
	LearningRate float64
	UseSTN       bool

	// CNNMarkup, if non-empty, is a convmarkup description
	// of the feature extractor.
	// Its input dimensions must match the window.
	CNNMarkup string
}

// A Model classifies character windows.
type Model struct {
	Creator anyvec.Creator

	Width  int
	Height int
	Depth  int

	NumClasses   int
	LearningRate float64

	// STN is nil if the spatial transformer is disabled.
	STN *anystn.Transformer
	CNN anynet.Layer
	FC  anynet.Net

	dropout *anynet.Dropout
	adams   map[string]*anysgd.Adam
}

// New creates a randomly initialized Model.
func New(c anyvec.Creator, opts *Options) (*Model, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.Depth <= 0 {
		return nil, fmt.Errorf("new model: bad window size %dx%dx%d", opts.Width,
			opts.Height, opts.Depth)
	} else if opts.NumClasses <= 1 {
		return nil, errors.New("new model: need at least two classes")
	}

	var cnn anynet.Layer
	var err error
	if opts.CNNMarkup != "" {
		cnn, err = anyconv.FromMarkup(c, opts.CNNMarkup)
	} else {
		cnn, err = defaultCNN(c, opts.Width, opts.Height, opts.Depth)
	}
	if err != nil {
		return nil, essentials.AddCtx("new model", err)
	}
	inSize := opts.Width * opts.Height * opts.Depth
	featureSize := cnn.Apply(anydiff.NewConst(c.MakeVector(inSize)), 1).Output().Len()

	dropout := &anynet.Dropout{KeepProb: 1 - DropoutScale}
	res := &Model{
		Creator:      c,
		Width:        opts.Width,
		Height:       opts.Height,
		Depth:        opts.Depth,
		NumClasses:   opts.NumClasses,
		LearningRate: opts.LearningRate,
		CNN:          cnn,
		FC: anynet.Net{
			anynet.ReLU,
			dropout,
			anynet.NewFC(c, featureSize, opts.NumClasses),
			anynet.LogSoftmax,
		},
		dropout: dropout,
		adams:   map[string]*anysgd.Adam{},
	}
	if opts.UseSTN {
		res.STN = anystn.NewTransformer(c, opts.Width, opts.Height, opts.Depth,
			stnHiddenSize)
	}
	return res, nil
}

func defaultCNN(c anyvec.Creator, width, height, depth int) (anynet.Layer, error) {
	conv1 := &anyconv.Conv{
		FilterCount:  32,
		FilterWidth:  3,
		FilterHeight: 3,
		StrideX:      1,
		StrideY:      1,
		InputWidth:   width,
		InputHeight:  height,
		InputDepth:   depth,
	}
	conv1.InitRand(c)
	pool1 := &anyconv.MaxPool{
		SpanX:       2,
		SpanY:       2,
		StrideX:     2,
		StrideY:     2,
		InputWidth:  conv1.OutputWidth(),
		InputHeight: conv1.OutputHeight(),
		InputDepth:  conv1.OutputDepth(),
	}
	conv2 := &anyconv.Conv{
		FilterCount:  64,
		FilterWidth:  3,
		FilterHeight: 3,
		StrideX:      1,
		StrideY:      1,
		InputWidth:   pool1.OutputWidth(),
		InputHeight:  pool1.OutputHeight(),
		InputDepth:   pool1.OutputDepth(),
	}
	conv2.InitRand(c)
	pool2 := &anyconv.MaxPool{
		SpanX:       2,
		SpanY:       2,
		StrideX:     2,
		StrideY:     2,
		InputWidth:  conv2.OutputWidth(),
		InputHeight: conv2.OutputHeight(),
		InputDepth:  conv2.OutputDepth(),
	}
	outSize := pool2.OutputWidth() * pool2.OutputHeight() * pool2.OutputDepth()
	if outSize == 0 {
		return nil, fmt.Errorf("window %dx%d is too small for the CNN", width, height)
	}
	return anynet.Net{
		conv1,
		anynet.ReLU,
		pool1,
		conv2,
		anynet.ReLU,
		pool2,
		anynet.NewFC(c, outSize, FeatureSize),
	}, nil
}

// ParamSets returns the names of the model's parameter
// subsets, in the order they are applied.
func (m *Model) ParamSets() []string {
	if m.STN != nil {
		return []string{STNParams, CNNParams, FCParams}
	}
	return []string{CNNParams, FCParams}
}

// Params returns the parameters in a named subset.
func (m *Model) Params(name string) ([]*anydiff.Var, error) {
	switch name {
	case STNParams:
		if m.STN != nil {
			return m.STN.Parameters(), nil
		}
	case CNNParams:
		if p, ok := m.CNN.(anynet.Parameterizer); ok {
			return p.Parameters(), nil
		}
		return nil, nil
	case FCParams:
		return m.FC.Parameters(), nil
	}
	return nil, fmt.Errorf("unknown parameter set: %s", name)
}

// Apply computes log probabilities for a batch of
// windows.
func (m *Model) Apply(in anydiff.Res, n int) anydiff.Res {
	if m.STN != nil {
		in = m.STN.Apply(in, n)
	}
	return m.FC.Apply(m.CNN.Apply(in, n), n)
}

// Predict returns the most likely class of each window.
func (m *Model) Predict(windows [][]uint8) []int {
	m.dropout.Enabled = false
	out := m.Apply(m.inputs(windows), len(windows)).Output()
	return argmax(vectorFloats(out), m.NumClasses)
}

func (m *Model) inputs(windows [][]uint8) anydiff.Res {
	size := m.Width * m.Height * m.Depth
	data := make([]float64, 0, size*len(windows))
	for _, w := range windows {
		if len(w) != size {
			panic(fmt.Sprintf("window size %d should be %d", len(w), size))
		}
		for _, x := range w {
			data = append(data, float64(x)/255)
		}
	}
	return anydiff.NewConst(m.Creator.MakeVectorData(m.Creator.MakeNumericList(data)))
}

func argmax(rows []float64, cols int) []int {
	res := make([]int, len(rows)/cols)
	for i := range res {
		row := rows[i*cols : (i+1)*cols]
		for j, x := range row {
			if x > row[res[i]] {
				res[i] = j
			}
		}
	}
	return res
}

func vectorFloats(v anyvec.Vector) []float64 {
	switch data := v.Data().(type) {
	case []float64:
		return data
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	default:
		panic(fmt.Sprintf("unsupported numeric list: %T", data))
	}
}
