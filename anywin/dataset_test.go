package anywin

import (
	"path/filepath"
	"reflect"
	"testing"
)

func testWindowedExamples() []*WindowedExample {
	return []*WindowedExample{
		{
			Windows: [][]uint8{{1, 2, 3, 4}, {5, 6, 7, 8}},
			Labels:  []int{3},
			Time:    2,
		},
		{
			Windows: [][]uint8{{9, 9, 9, 9}, {8, 8, 8, 8}, {7, 7, 7, 7}},
			Labels:  []int{1, 2},
			Time:    3,
		},
	}
}

func TestMaxTime(t *testing.T) {
	train := testWindowedExamples()
	test := []*WindowedExample{{Windows: make([][]uint8, 5), Time: 5}}
	if m := MaxTime(train); m != 3 {
		t.Errorf("expected 3 but got %d", m)
	}
	if m := MaxTime(train, test); m != 5 {
		t.Errorf("expected 5 but got %d", m)
	}
}

func TestNewDataset(t *testing.T) {
	g := Geometry{Height: 2, WindowSize: 2, Depth: 1, Stride: 1}
	examples := testWindowedExamples()
	d, err := NewDataset(g, 4, examples)
	if err != nil {
		t.Fatal(err)
	}
	expectedPixels := []uint8{
		1, 2, 3, 4, 5, 6, 7, 8, 0, 0, 0, 0, 0, 0, 0, 0,
		9, 9, 9, 9, 8, 8, 8, 8, 7, 7, 7, 7, 0, 0, 0, 0,
	}
	if !reflect.DeepEqual(d.Pixels, expectedPixels) {
		t.Errorf("unexpected pixels: %v", d.Pixels)
	}
	if !reflect.DeepEqual(d.Times, []int{2, 3}) {
		t.Errorf("unexpected times: %v", d.Times)
	}
	if !reflect.DeepEqual(d.LabelLens, []int{1, 2}) {
		t.Errorf("unexpected label lengths: %v", d.LabelLens)
	}
	if !reflect.DeepEqual(d.Labels, []uint8{3, 1, 2}) {
		t.Errorf("unexpected labels: %v", d.Labels)
	}
	for i, ex := range examples {
		if actual := d.Example(i); !reflect.DeepEqual(actual, ex) {
			t.Errorf("example %d: expected %v but got %v", i, ex, actual)
		}
	}
}

func TestNewDatasetTooLong(t *testing.T) {
	g := Geometry{Height: 2, WindowSize: 2, Depth: 1, Stride: 1}
	if _, err := NewDataset(g, 2, testWindowedExamples()); err == nil {
		t.Error("expected an error")
	}
}

func TestDatasetSaveLoad(t *testing.T) {
	g := Geometry{Height: 2, WindowSize: 2, Depth: 1, Stride: 1, Drop: 3}
	d, err := NewDataset(g, 3, testWindowedExamples())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "train.anychar")
	if err := d.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadDataset(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded, d) {
		t.Errorf("expected %+v but got %+v", d, loaded)
	}
}

func TestDatasetExampleLabels(t *testing.T) {
	g := Geometry{Height: 1, WindowSize: 1, Depth: 1, Stride: 1}
	var examples []*WindowedExample
	for i := 0; i < 20; i++ {
		ex := &WindowedExample{Time: 1 + i%3}
		for j := 0; j < ex.Time; j++ {
			ex.Windows = append(ex.Windows, []uint8{uint8(i)})
		}
		for j := 0; j < i%4; j++ {
			ex.Labels = append(ex.Labels, i+j)
		}
		examples = append(examples, ex)
	}
	d, err := NewDataset(g, 3, examples)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "test.anychar")
	if err := d.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadDataset(path)
	if err != nil {
		t.Fatal(err)
	}
	unindexed := &Dataset{
		Geometry:  d.Geometry,
		MaxTime:   d.MaxTime,
		Pixels:    d.Pixels,
		Times:     d.Times,
		LabelLens: d.LabelLens,
		Labels:    d.Labels,
	}
	for _, ds := range []*Dataset{d, loaded, unindexed} {
		for i := len(examples) - 1; i >= 0; i-- {
			if actual := ds.Example(i); !reflect.DeepEqual(actual.Labels, examples[i].Labels) {
				t.Errorf("example %d: expected labels %v but got %v", i,
					examples[i].Labels, actual.Labels)
			}
		}
	}
}
