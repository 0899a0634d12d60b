// Package anybatch produces mini-batches of character
// windows for training and evaluating a window
// classifier.
package anybatch

import (
	"errors"
	"io"
)

// A Batch is a list of windows and their classes.
type Batch struct {
	// Windows stores one window per sample.
	// Every window is a row-major depth-minor tensor of
	// bytes.
	Windows [][]uint8

	// Labels stores one class index per window.
	Labels []int

	// Epoch is the index of the pass over the data that
	// produced the batch, starting at 0.
	Epoch int
}

// Len returns the number of samples in the batch.
func (b *Batch) Len() int {
	return len(b.Labels)
}

// An Iterator produces a finite sequence of batches.
//
// Next returns io.EOF once the sequence is exhausted.
type Iterator interface {
	Next() (*Batch, error)
}

// SliceIterator is an Iterator over fixed batches.
type SliceIterator struct {
	Batches []*Batch
	idx     int
}

// Next returns the next batch, or io.EOF.
func (s *SliceIterator) Next() (*Batch, error) {
	if s.idx >= len(s.Batches) {
		return nil, io.EOF
	}
	s.idx++
	return s.Batches[s.idx-1], nil
}

// ForEach calls f for every batch of an iterator.
// It returns the first error other than io.EOF.
func ForEach(it Iterator, f func(b *Batch) error) error {
	for {
		b, err := it.Next()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		if b.Len() == 0 {
			return errors.New("empty batch")
		}
		if err := f(b); err != nil {
			return err
		}
	}
}

// A Result summarizes a model's performance on a Batch.
type Result struct {
	// Loss is the mean loss over the batch.
	Loss float64

	// Correct indicates, for each sample, whether or not
	// the predicted class matched the label.
	Correct []bool
}

// Accuracy returns the fraction of correct predictions.
func (r *Result) Accuracy() float64 {
	if len(r.Correct) == 0 {
		return 0
	}
	var num int
	for _, c := range r.Correct {
		if c {
			num++
		}
	}
	return float64(num) / float64(len(r.Correct))
}
