package anywin

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/ioutil"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var d Dataset
	serializer.RegisterTypedDeserializer(d.SerializerType(), DeserializeDataset)
	var r rawBytes
	serializer.RegisterTypedDeserializer(r.SerializerType(), deserializeRawBytes)
}

// A Dataset is a padded, fixed-shape container of
// windowed examples.
//
// Pixels has shape (NumExamples, MaxTime, Height,
// WindowSize, Depth).
// Windows past Times[i] are zero for example i.
// The labels of example i are the next LabelLens[i]
// entries of Labels.
type Dataset struct {
	Geometry Geometry
	MaxTime  int

	Pixels    []uint8
	Times     []int
	LabelLens []int
	Labels    []uint8

	labelStarts []int
}

// DeserializeDataset deserializes a Dataset.
func DeserializeDataset(d []byte) (*Dataset, error) {
	var height, windowSize, depth, stride, drop, maxTime serializer.Int
	var pixels, times, labelLens, labels rawBytes
	err := serializer.DeserializeAny(d, &height, &windowSize, &depth, &stride, &drop,
		&maxTime, &pixels, &times, &labelLens, &labels)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Dataset", err)
	}
	res := &Dataset{
		Geometry: Geometry{
			Height:     int(height),
			WindowSize: int(windowSize),
			Depth:      int(depth),
			Stride:     int(stride),
			Drop:       int(drop),
		},
		MaxTime:   int(maxTime),
		Pixels:    []uint8(pixels),
		Labels:    []uint8(labels),
		Times:     decodeInts(times),
		LabelLens: decodeInts(labelLens),
	}
	if err := res.check(); err != nil {
		return nil, essentials.AddCtx("deserialize Dataset", err)
	}
	res.indexLabels()
	return res, nil
}

// LoadDataset reads a Dataset from a file.
func LoadDataset(path string) (*Dataset, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("load dataset", err)
	}
	var res *Dataset
	if err := serializer.DeserializeAny(data, &res); err != nil {
		return nil, essentials.AddCtx("load dataset "+path, err)
	}
	return res, nil
}

// MaxTime returns the largest valid time of any example
// in any of the lists.
func MaxTime(lists ...[]*WindowedExample) int {
	var res int
	for _, l := range lists {
		for _, ex := range l {
			res = maxInt(res, ex.Time)
		}
	}
	return res
}

// NewDataset pads the examples to maxTime windows and
// packs them into a Dataset.
//
// The maxTime argument is usually computed with MaxTime
// over every split that is written together.
func NewDataset(g Geometry, maxTime int, examples []*WindowedExample) (*Dataset, error) {
	windowLen := g.WindowLen()
	res := &Dataset{
		Geometry:  g,
		MaxTime:   maxTime,
		Pixels:    make([]uint8, len(examples)*maxTime*windowLen),
		Times:     make([]int, len(examples)),
		LabelLens: make([]int, len(examples)),
	}
	for i, ex := range examples {
		if ex.Time > maxTime || len(ex.Windows) != ex.Time {
			return nil, fmt.Errorf("new dataset: example %d has %d windows (time %d, max %d)",
				i, len(ex.Windows), ex.Time, maxTime)
		}
		offset := i * maxTime * windowLen
		for j, w := range ex.Windows {
			if len(w) != windowLen {
				return nil, fmt.Errorf("new dataset: example %d window %d has length %d",
					i, j, len(w))
			}
			copy(res.Pixels[offset+j*windowLen:], w)
		}
		res.Times[i] = ex.Time
		res.LabelLens[i] = len(ex.Labels)
		for _, l := range ex.Labels {
			if l < 0 || l > 0xff {
				return nil, fmt.Errorf("new dataset: example %d has label %d", i, l)
			}
			res.Labels = append(res.Labels, uint8(l))
		}
	}
	res.indexLabels()
	return res, nil
}

// Len returns the number of examples.
func (d *Dataset) Len() int {
	return len(d.Times)
}

// Window returns window j of example i.
// The slice aliases the dataset's pixels.
func (d *Dataset) Window(i, j int) []uint8 {
	windowLen := d.Geometry.WindowLen()
	offset := (i*d.MaxTime + j) * windowLen
	return d.Pixels[offset : offset+windowLen]
}

// Example unpacks example i, dropping its padding.
func (d *Dataset) Example(i int) *WindowedExample {
	res := &WindowedExample{Time: d.Times[i]}
	for j := 0; j < d.Times[i]; j++ {
		res.Windows = append(res.Windows, d.Window(i, j))
	}
	if len(d.labelStarts) != len(d.LabelLens) {
		d.indexLabels()
	}
	start := d.labelStarts[i]
	for _, l := range d.Labels[start : start+d.LabelLens[i]] {
		res.Labels = append(res.Labels, int(l))
	}
	return res
}

// Save writes the dataset to a file.
func (d *Dataset) Save(path string) error {
	data, err := serializer.SerializeAny(d)
	if err != nil {
		return essentials.AddCtx("save dataset", err)
	}
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		return essentials.AddCtx("save dataset", err)
	}
	return nil
}

// SerializerType returns the unique ID used to serialize
// a Dataset with the serializer package.
func (d *Dataset) SerializerType() string {
	return "github.com/unixpickle/anychar/anywin.Dataset"
}

// Serialize serializes the dataset.
func (d *Dataset) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		serializer.Int(d.Geometry.Height),
		serializer.Int(d.Geometry.WindowSize),
		serializer.Int(d.Geometry.Depth),
		serializer.Int(d.Geometry.Stride),
		serializer.Int(d.Geometry.Drop),
		serializer.Int(d.MaxTime),
		rawBytes(d.Pixels),
		rawBytes(encodeInts(d.Times)),
		rawBytes(encodeInts(d.LabelLens)),
		rawBytes(d.Labels),
	)
}

func (d *Dataset) check() error {
	if len(d.Times) != len(d.LabelLens) {
		return errors.New("mismatching time and label counts")
	}
	if len(d.Pixels) != len(d.Times)*d.MaxTime*d.Geometry.WindowLen() {
		return errors.New("unexpected pixel count")
	}
	var labelCount int
	for i, t := range d.Times {
		if t > d.MaxTime {
			return fmt.Errorf("example %d exceeds max time", i)
		}
		labelCount += d.LabelLens[i]
	}
	if labelCount != len(d.Labels) {
		return errors.New("unexpected label count")
	}
	return nil
}

// indexLabels records the offset of each example's
// labels in Labels.
func (d *Dataset) indexLabels() {
	d.labelStarts = make([]int, len(d.LabelLens))
	var start int
	for i, n := range d.LabelLens {
		d.labelStarts[i] = start
		start += n
	}
}

func encodeInts(ints []int) []byte {
	res := make([]byte, 4*len(ints))
	for i, x := range ints {
		binary.BigEndian.PutUint32(res[4*i:], uint32(x))
	}
	return res
}

func decodeInts(data []byte) []int {
	res := make([]int, len(data)/4)
	for i := range res {
		res[i] = int(binary.BigEndian.Uint32(data[4*i:]))
	}
	return res
}

// rawBytes is a byte slice which serializes as itself.
type rawBytes []byte

func deserializeRawBytes(d []byte) (rawBytes, error) {
	return rawBytes(d), nil
}

func (r rawBytes) SerializerType() string {
	return "github.com/unixpickle/anychar/anywin.rawBytes"
}

func (r rawBytes) Serialize() ([]byte, error) {
	return r, nil
}
