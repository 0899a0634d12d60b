// Package anyckpt drives training and keeps checkpoints
// of the best models seen so far.
package anyckpt

import (
	"fmt"
	"math"
)

// A Slot names one of the independently stored
// checkpoints.
type Slot int

const (
	// Current holds the latest model that improved on
	// neither loss nor accuracy.
	Current Slot = iota

	// BestLoss holds the model with the lowest test loss.
	BestLoss

	// BestAccuracy holds the model with the highest test
	// accuracy.
	BestAccuracy
)

// String returns the slot's name as used in file names.
func (s Slot) String() string {
	switch s {
	case Current:
		return "current"
	case BestLoss:
		return "best_loss"
	case BestAccuracy:
		return "best_accuracy"
	default:
		return "unknown"
	}
}

// ParseSlot finds the slot with the given name.
func ParseSlot(name string) (Slot, error) {
	for _, s := range []Slot{Current, BestLoss, BestAccuracy} {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown slot: %s", name)
}

// Eval is the outcome of one pass over the test set.
type Eval struct {
	Loss     float64
	Accuracy float64
}

// State tracks the best evaluations seen so far.
type State struct {
	BestLoss           float64
	AccuracyAtBestLoss float64

	BestAccuracy       float64
	LossAtBestAccuracy float64
}

// NewState creates the state for a model that has never
// been evaluated.
func NewState() State {
	return State{
		BestLoss:           math.Inf(1),
		LossAtBestAccuracy: math.Inf(1),
	}
}

// Decide updates the state with an evaluation and lists
// the slots which should be saved, in order.
//
// The checks are independent of each other.
// A model is saved as Current if it matches or trails the
// best loss and the best accuracy.
// Strict improvements are saved as BestLoss and/or
// BestAccuracy.
func Decide(prev State, e Eval) (State, []Slot) {
	next := prev
	var slots []Slot
	if e.Loss >= prev.BestLoss && e.Accuracy <= prev.BestAccuracy {
		slots = append(slots, Current)
	}
	if e.Loss < prev.BestLoss {
		next.BestLoss = e.Loss
		next.AccuracyAtBestLoss = e.Accuracy
		slots = append(slots, BestLoss)
	}
	if e.Accuracy > prev.BestAccuracy {
		next.BestAccuracy = e.Accuracy
		next.LossAtBestAccuracy = e.Loss
		slots = append(slots, BestAccuracy)
	}
	return next, slots
}
