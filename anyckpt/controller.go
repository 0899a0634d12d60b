package anyckpt

import (
	"errors"
	"io"
	"log"

	"github.com/unixpickle/anychar/anybatch"
	"github.com/unixpickle/essentials"
)

const logSeparator = "<-------------------->"

// A Controller trains a Model and periodically evaluates
// it, saving checkpoints as directed by Decide.
type Controller struct {
	Model Model
	Store *Store

	// Train produces the training batches.
	Train anybatch.Iterator

	// NewTestIterator creates an iterator over the whole
	// test set.
	// It is called once per evaluation.
	NewTestIterator func() (anybatch.Iterator, error)

	// EvalEvery is the number of training steps between
	// evaluations.
	// The first evaluation happens before the first step.
	EvalEvery int

	// TestOnly indicates that Run should perform a single
	// evaluation and save nothing.
	TestOnly bool

	// Dropout is passed to Model.Train.
	Dropout float64

	// RunID, if non-empty, is included in evaluation logs.
	RunID string

	// Logger is used for progress messages.
	// If it is nil, the standard logger is used.
	Logger *log.Logger

	// State is the current best evaluation state.
	// It is loaded from the Store at the start of Run.
	State State
}

// Run restores the latest best-accuracy checkpoint, if
// there is one, and trains until the training iterator is
// exhausted.
func (c *Controller) Run() error {
	if c.EvalEvery <= 0 {
		return errors.New("run: evaluation cadence must be positive")
	}
	if err := c.Resume(); err != nil {
		return err
	}

	if c.TestOnly {
		e, numBatches, err := c.Evaluate()
		if err != nil {
			return err
		}
		c.logf(logSeparator)
		c.logf("test loss: %f (#batches = %d)", e.Loss, numBatches)
		c.logf("test accuracy: %f (#batches = %d)", e.Accuracy, numBatches)
		c.logf(logSeparator)
		return nil
	}

	var losses, accuracies []float64
	var curEpoch int
	for step := 0; ; step++ {
		batch, err := c.Train.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return essentials.AddCtx("run", err)
		}

		if step%c.EvalEvery == 0 {
			if err := c.evaluateAndSave(); err != nil {
				return err
			}
		}

		if batch.Epoch != curEpoch {
			c.logf("training loss in epoch %d, step %d: %f", curEpoch, step, mean(losses))
			c.logf("training accuracy in epoch %d, step %d: %f", curEpoch, step,
				mean(accuracies))
			losses, accuracies = nil, nil
			curEpoch = batch.Epoch
		}

		res, err := c.Model.Train(batch, c.Dropout)
		if err != nil {
			return essentials.AddCtx("run", err)
		}
		losses = append(losses, res.Loss)
		accuracies = append(accuracies, res.Accuracy())
		c.logf("epoch %d, step %d: training loss = %f", batch.Epoch, step, res.Loss)
	}
	return nil
}

// Resume restores the best-accuracy checkpoint and the
// saved State fields.
// Missing files are not an error.
func (c *Controller) Resume() error {
	found, err := c.Store.RestoreModel(c.Model, BestAccuracy)
	if err != nil {
		return essentials.AddCtx("resume", err)
	}
	if found {
		c.logf(logSeparator)
		c.logf("model restored")
	}
	c.State, err = c.Store.LoadState()
	if err != nil {
		return essentials.AddCtx("resume", err)
	}
	if found {
		c.logf("best loss: %f", c.State.BestLoss)
		c.logf("corresponding accuracy: %f", c.State.AccuracyAtBestLoss)
		c.logf("best accuracy: %f", c.State.BestAccuracy)
		c.logf("corresponding loss: %f", c.State.LossAtBestAccuracy)
		c.logf(logSeparator)
	}
	return nil
}

// Evaluate runs the model over the whole test set.
//
// The loss and accuracy are unweighted means over the
// test batches.
func (c *Controller) Evaluate() (Eval, int, error) {
	it, err := c.NewTestIterator()
	if err != nil {
		return Eval{}, 0, essentials.AddCtx("evaluate", err)
	}
	var losses, accuracies []float64
	err = anybatch.ForEach(it, func(b *anybatch.Batch) error {
		res, err := c.Model.Test(b)
		if err != nil {
			return err
		}
		losses = append(losses, res.Loss)
		accuracies = append(accuracies, res.Accuracy())
		return nil
	})
	if err != nil {
		return Eval{}, 0, essentials.AddCtx("evaluate", err)
	}
	if len(losses) == 0 {
		return Eval{}, 0, errors.New("evaluate: empty test set")
	}
	return Eval{Loss: mean(losses), Accuracy: mean(accuracies)}, len(losses), nil
}

func (c *Controller) evaluateAndSave() error {
	e, numBatches, err := c.Evaluate()
	if err != nil {
		return err
	}
	next, slots := Decide(c.State, e)
	for _, slot := range slots {
		if err := c.Store.SaveModel(c.Model, slot); err != nil {
			return err
		}
		if err := c.Store.SaveState(next, slot); err != nil {
			return err
		}
		switch slot {
		case Current:
			c.logf("current model saved")
		case BestLoss:
			c.logf("best loss model saved")
		case BestAccuracy:
			c.logf("best accuracy model saved")
		}
	}
	c.State = next

	c.logf(logSeparator)
	if c.RunID != "" {
		c.logf("run: %s", c.RunID)
	}
	c.logf("test loss: %f (#batches = %d)", e.Loss, numBatches)
	c.logf("test accuracy: %f (#batches = %d)", e.Accuracy, numBatches)
	c.logf("best test loss: %f, corresponding accuracy: %f", next.BestLoss,
		next.AccuracyAtBestLoss)
	c.logf("best test accuracy: %f, corresponding loss: %f", next.BestAccuracy,
		next.LossAtBestAccuracy)
	c.logf(logSeparator)
	return nil
}

func (c *Controller) logf(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	} else {
		log.Printf(format, args...)
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, x := range values {
		sum += x
	}
	return sum / float64(len(values))
}
