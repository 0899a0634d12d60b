package anyckpt

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/unixpickle/anychar/anybatch"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// Names of the files which store State fields.
const (
	BestLossFile           = "char_best_loss"
	AccuracyAtBestLossFile = "char_corr_accuracy"
	BestAccuracyFile       = "char_best_accuracy"
	LossAtBestAccuracyFile = "char_corr_loss"
)

// A Model is a trainable classifier whose parameters are
// split into named subsets.
type Model interface {
	Train(b *anybatch.Batch, dropout float64) (*anybatch.Result, error)
	Test(b *anybatch.Batch) (*anybatch.Result, error)

	ParamSets() []string
	SaveParams(name string) ([]byte, error)
	LoadParams(name string, data []byte) error
}

// A Store saves checkpoints and State fields to a
// directory.
type Store struct {
	Dir string
}

// ModelPath returns the file for one parameter subset in
// a slot.
func (s *Store) ModelPath(slot Slot, subset string) string {
	if slot == Current {
		return filepath.Join(s.Dir, "model_"+subset+".ckpt")
	}
	return filepath.Join(s.Dir, fmt.Sprintf("model_%s_%s.ckpt", slot, subset))
}

// SaveModel writes every parameter subset of m to a slot.
func (s *Store) SaveModel(m Model, slot Slot) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return essentials.AddCtx("save model", err)
	}
	for _, name := range m.ParamSets() {
		data, err := m.SaveParams(name)
		if err != nil {
			return essentials.AddCtx("save model", err)
		}
		if err := os.WriteFile(s.ModelPath(slot, name), data, 0644); err != nil {
			return essentials.AddCtx("save model", err)
		}
	}
	return nil
}

// RestoreModel loads every parameter subset of m from a
// slot.
//
// If the slot has never been saved, false is returned.
// A partially saved slot is an error.
func (s *Store) RestoreModel(m Model, slot Slot) (bool, error) {
	names := m.ParamSets()
	var found int
	for _, name := range names {
		if _, err := os.Stat(s.ModelPath(slot, name)); err == nil {
			found++
		} else if !os.IsNotExist(err) {
			return false, essentials.AddCtx("restore model", err)
		}
	}
	if found == 0 {
		return false, nil
	}
	for _, name := range names {
		data, err := os.ReadFile(s.ModelPath(slot, name))
		if err != nil {
			return false, essentials.AddCtx("restore model", err)
		}
		if err := m.LoadParams(name, data); err != nil {
			return false, essentials.AddCtx("restore model", err)
		}
	}
	return true, nil
}

// SaveState writes the State fields that belong to a
// slot.
// The Current slot has no fields.
func (s *Store) SaveState(st State, slot Slot) error {
	var err error
	switch slot {
	case BestLoss:
		err = s.saveScalars(map[string]float64{
			BestLossFile:           st.BestLoss,
			AccuracyAtBestLossFile: st.AccuracyAtBestLoss,
		})
	case BestAccuracy:
		err = s.saveScalars(map[string]float64{
			BestAccuracyFile:       st.BestAccuracy,
			LossAtBestAccuracyFile: st.LossAtBestAccuracy,
		})
	}
	if err != nil {
		return essentials.AddCtx("save state", err)
	}
	return nil
}

// LoadState reads every saved State field.
// Fields without a file keep the value from NewState.
func (s *Store) LoadState() (State, error) {
	st := NewState()
	fields := []struct {
		File string
		Dest *float64
	}{
		{BestLossFile, &st.BestLoss},
		{AccuracyAtBestLossFile, &st.AccuracyAtBestLoss},
		{BestAccuracyFile, &st.BestAccuracy},
		{LossAtBestAccuracyFile, &st.LossAtBestAccuracy},
	}
	for _, field := range fields {
		data, err := os.ReadFile(filepath.Join(s.Dir, field.File))
		if os.IsNotExist(err) {
			continue
		} else if err != nil {
			return st, essentials.AddCtx("load state", err)
		}
		var x serializer.Float64
		if err := serializer.DeserializeAny(data, &x); err != nil {
			return st, essentials.AddCtx("load state", err)
		}
		if math.IsNaN(float64(x)) {
			return st, fmt.Errorf("load state: %s is NaN", field.File)
		}
		*field.Dest = float64(x)
	}
	return st, nil
}

func (s *Store) saveScalars(scalars map[string]float64) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return err
	}
	for name, x := range scalars {
		data, err := serializer.SerializeAny(serializer.Float64(x))
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(s.Dir, name), data, 0644); err != nil {
			return err
		}
	}
	return nil
}
