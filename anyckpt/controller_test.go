package anyckpt

import (
	"bytes"
	"errors"
	"log"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/unixpickle/anychar/anybatch"
)

type fakeModel struct {
	Sets   []string
	Params map[string][]byte

	// Evals are returned by Test, one per call.
	Evals   []*anybatch.Result
	numTest int

	Dropouts []float64
}

func newFakeModel(evals ...*anybatch.Result) *fakeModel {
	return &fakeModel{
		Sets:   []string{"cnn", "fc"},
		Params: map[string][]byte{"cnn": {1}, "fc": {2}},
		Evals:  evals,
	}
}

func (f *fakeModel) Train(b *anybatch.Batch, dropout float64) (*anybatch.Result, error) {
	f.Dropouts = append(f.Dropouts, dropout)
	f.Params["cnn"] = append(f.Params["cnn"], byte(len(f.Dropouts)))
	return &anybatch.Result{Loss: 1, Correct: []bool{true, false}}, nil
}

func (f *fakeModel) Test(b *anybatch.Batch) (*anybatch.Result, error) {
	if f.numTest >= len(f.Evals) {
		return nil, errors.New("unexpected test")
	}
	f.numTest++
	return f.Evals[f.numTest-1], nil
}

func (f *fakeModel) ParamSets() []string {
	return f.Sets
}

func (f *fakeModel) SaveParams(name string) ([]byte, error) {
	return append([]byte{}, f.Params[name]...), nil
}

func (f *fakeModel) LoadParams(name string, data []byte) error {
	f.Params[name] = append([]byte{}, data...)
	return nil
}

func result(loss, accuracy float64) *anybatch.Result {
	correct := make([]bool, 4)
	for i := 0; i < int(math.Round(accuracy*4)); i++ {
		correct[i] = true
	}
	return &anybatch.Result{Loss: loss, Correct: correct}
}

func batches(epochs ...int) *anybatch.SliceIterator {
	res := &anybatch.SliceIterator{}
	for _, e := range epochs {
		res.Batches = append(res.Batches, &anybatch.Batch{
			Windows: [][]uint8{{0}},
			Labels:  []int{0},
			Epoch:   e,
		})
	}
	return res
}

func testController(t *testing.T, m Model, train anybatch.Iterator) (*Controller, *int) {
	var testIterators int
	return &Controller{
		Model: m,
		Store: &Store{Dir: t.TempDir()},
		Train: train,
		NewTestIterator: func() (anybatch.Iterator, error) {
			testIterators++
			return batches(0), nil
		},
		EvalEvery: 1,
		Dropout:   1,
		Logger:    log.New(&bytes.Buffer{}, "", 0),
	}, &testIterators
}

func dirFiles(t *testing.T, dir string) []string {
	listing, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	var res []string
	for _, entry := range listing {
		res = append(res, entry.Name())
	}
	sort.Strings(res)
	return res
}

func TestControllerBestLossOnly(t *testing.T) {
	model := newFakeModel(result(1.5, 0.5))
	c, _ := testController(t, model, batches(0))
	prev := State{
		BestLoss:           2,
		AccuracyAtBestLoss: 0.5,
		BestAccuracy:       0.5,
		LossAtBestAccuracy: 2,
	}
	for _, slot := range []Slot{BestLoss, BestAccuracy} {
		if err := c.Store.SaveState(prev, slot); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Run(); err != nil {
		t.Fatal(err)
	}
	expected := []string{
		BestAccuracyFile,
		BestLossFile,
		AccuracyAtBestLossFile,
		LossAtBestAccuracyFile,
		"model_best_loss_cnn.ckpt",
		"model_best_loss_fc.ckpt",
	}
	if files := dirFiles(t, c.Store.Dir); !reflect.DeepEqual(files, expected) {
		t.Errorf("expected files %v but got %v", expected, files)
	}
	st, err := c.Store.LoadState()
	if err != nil {
		t.Fatal(err)
	}
	expectedState := State{
		BestLoss:           1.5,
		AccuracyAtBestLoss: 0.5,
		BestAccuracy:       0.5,
		LossAtBestAccuracy: 2,
	}
	if st != expectedState || c.State != expectedState {
		t.Errorf("expected state %v but got %v (saved %v)", expectedState, c.State, st)
	}
}

func TestControllerCurrentOnly(t *testing.T) {
	model := newFakeModel(result(2, 0.5))
	c, _ := testController(t, model, batches(0))
	prev := State{
		BestLoss:           2,
		AccuracyAtBestLoss: 0.5,
		BestAccuracy:       0.5,
		LossAtBestAccuracy: 2,
	}
	for _, slot := range []Slot{BestLoss, BestAccuracy} {
		if err := c.Store.SaveState(prev, slot); err != nil {
			t.Fatal(err)
		}
	}
	before := map[string][]byte{}
	for _, name := range dirFiles(t, c.Store.Dir) {
		data, err := os.ReadFile(filepath.Join(c.Store.Dir, name))
		if err != nil {
			t.Fatal(err)
		}
		before[name] = data
	}

	if err := c.Run(); err != nil {
		t.Fatal(err)
	}

	expected := []string{
		BestAccuracyFile,
		BestLossFile,
		AccuracyAtBestLossFile,
		LossAtBestAccuracyFile,
		"model_cnn.ckpt",
		"model_fc.ckpt",
	}
	if files := dirFiles(t, c.Store.Dir); !reflect.DeepEqual(files, expected) {
		t.Errorf("expected files %v but got %v", expected, files)
	}
	for name, data := range before {
		after, err := os.ReadFile(filepath.Join(c.Store.Dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(data, after) {
			t.Errorf("scalar file %s changed", name)
		}
	}

	// The evaluation comes before the first training step.
	saved, err := os.ReadFile(c.Store.ModelPath(Current, "cnn"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(saved, []byte{1}) {
		t.Errorf("unexpected checkpoint contents: %v", saved)
	}
}

func TestControllerCadence(t *testing.T) {
	model := newFakeModel(result(3, 0.25), result(2, 0.25), result(2.5, 0.5))
	c, numTests := testController(t, model, batches(0, 0, 1, 1, 1))
	c.EvalEvery = 2
	buf := &bytes.Buffer{}
	c.Logger = log.New(buf, "", 0)
	c.RunID = "test-run"
	if err := c.Run(); err != nil {
		t.Fatal(err)
	}
	if *numTests != 3 {
		t.Errorf("expected 3 evaluations but got %d", *numTests)
	}
	if !reflect.DeepEqual(model.Dropouts, []float64{1, 1, 1, 1, 1}) {
		t.Errorf("unexpected training calls: %v", model.Dropouts)
	}
	expected := State{
		BestLoss:           2,
		AccuracyAtBestLoss: 0.25,
		BestAccuracy:       0.5,
		LossAtBestAccuracy: 2.5,
	}
	if c.State != expected {
		t.Errorf("expected state %v but got %v", expected, c.State)
	}
	logs := buf.String()
	for _, msg := range []string{
		"training loss in epoch 0, step 2: 1.000000",
		"training accuracy in epoch 0, step 2: 0.500000",
		"best loss model saved",
		"best accuracy model saved",
		"run: test-run",
	} {
		if !strings.Contains(logs, msg) {
			t.Errorf("missing log message: %q", msg)
		}
	}
	if strings.Contains(logs, "current model saved") {
		t.Error("unexpected current model")
	}
}

func TestControllerTestOnly(t *testing.T) {
	model := newFakeModel(result(1, 1))
	c, numTests := testController(t, model, batches(0, 0, 0))
	c.TestOnly = true
	if err := c.Run(); err != nil {
		t.Fatal(err)
	}
	if *numTests != 1 {
		t.Errorf("expected 1 evaluation but got %d", *numTests)
	}
	if len(model.Dropouts) != 0 {
		t.Error("model was trained")
	}
	if files := dirFiles(t, c.Store.Dir); len(files) != 0 {
		t.Errorf("unexpected files: %v", files)
	}
}

func TestControllerResume(t *testing.T) {
	model := newFakeModel()
	c, _ := testController(t, model, batches())
	saved := newFakeModel()
	saved.Params["cnn"] = []byte{5, 6}
	saved.Params["fc"] = []byte{7}
	if err := c.Store.SaveModel(saved, BestAccuracy); err != nil {
		t.Fatal(err)
	}
	if err := c.Store.saveScalars(map[string]float64{BestAccuracyFile: 0.75}); err != nil {
		t.Fatal(err)
	}
	if err := c.Resume(); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(model.Params, saved.Params) {
		t.Errorf("expected params %v but got %v", saved.Params, model.Params)
	}
	if !math.IsInf(c.State.BestLoss, 1) || c.State.AccuracyAtBestLoss != 0 ||
		c.State.BestAccuracy != 0.75 || !math.IsInf(c.State.LossAtBestAccuracy, 1) {
		t.Errorf("unexpected state: %v", c.State)
	}
}

func TestControllerEmptyTestSet(t *testing.T) {
	c, _ := testController(t, newFakeModel(), batches(0))
	c.NewTestIterator = func() (anybatch.Iterator, error) {
		return batches(), nil
	}
	if err := c.Run(); err == nil {
		t.Error("expected error for empty test set")
	}
}

func TestControllerBatchMeans(t *testing.T) {
	// The last test batch is smaller but counts as much as
	// the others.
	testBatches := func() (anybatch.Iterator, error) {
		return &anybatch.SliceIterator{Batches: []*anybatch.Batch{
			{Windows: make([][]uint8, 4), Labels: make([]int, 4)},
			{Windows: make([][]uint8, 4), Labels: make([]int, 4)},
			{Windows: make([][]uint8, 1), Labels: make([]int, 1)},
		}}, nil
	}
	evals := []*anybatch.Result{
		result(3, 1),
		result(1, 0.5),
		{Loss: 5, Correct: []bool{false}},
	}
	model := newFakeModel(append(append([]*anybatch.Result{}, evals...), evals...)...)
	c, _ := testController(t, model, batches(0))
	c.NewTestIterator = testBatches

	e, numBatches, err := c.Evaluate()
	if err != nil {
		t.Fatal(err)
	}
	if numBatches != 3 {
		t.Errorf("expected 3 batches but got %d", numBatches)
	}
	if e != (Eval{Loss: 3, Accuracy: 0.5}) {
		t.Errorf("unexpected evaluation: %v", e)
	}

	if err := c.Run(); err != nil {
		t.Fatal(err)
	}
	expected := State{
		BestLoss:           3,
		AccuracyAtBestLoss: 0.5,
		BestAccuracy:       0.5,
		LossAtBestAccuracy: 3,
	}
	if c.State != expected {
		t.Errorf("expected state %v but got %v", expected, c.State)
	}
	loaded, err := c.Store.LoadState()
	if err != nil {
		t.Fatal(err)
	}
	if loaded != expected {
		t.Errorf("expected saved state %v but got %v", expected, loaded)
	}
}
