package anybatch

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"github.com/unixpickle/anychar"
	"github.com/unixpickle/anychar/anysrc"
	"github.com/unixpickle/anychar/anywin"
	"github.com/unixpickle/essentials"
)

// A CharSample is one character of a word image.
type CharSample struct {
	// Word is the word image, resized to the window height
	// and converted to the window depth.
	// It is shared by every character of the word.
	Word *anywin.Image

	// Left and Right bound the character horizontally, in
	// Word's pixel coordinates.
	Left  float64
	Right float64

	Label int
}

// A Loader turns word examples into CharSamples.
type Loader struct {
	Dir     string
	Height  int
	Depth   int
	Charset anychar.Charset

	// MaxGos specifies the maximum goroutines to use
	// simultaneously for decoding images.
	// If it is 0, GOMAXPROCS is used.
	MaxGos int
}

// Load decodes every example's image and splits it into
// characters.
//
// Examples without character boxes are split into
// equally wide characters.
func (l *Loader) Load(examples []*anysrc.Example) ([]*CharSample, error) {
	perExample := make([][]*CharSample, len(examples))

	idxChan := make(chan int, len(examples))
	for i := range examples {
		idxChan <- i
	}
	close(idxChan)

	maxGos := l.MaxGos
	if maxGos == 0 {
		maxGos = runtime.GOMAXPROCS(0)
	}

	wg := sync.WaitGroup{}
	errChan := make(chan error, maxGos)
	for i := 0; i < maxGos; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxChan {
				samples, err := l.loadExample(examples[i])
				if err != nil {
					errChan <- essentials.AddCtx(fmt.Sprintf("load example %d", i), err)
					return
				}
				perExample[i] = samples
			}
		}()
	}

	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return nil, err
	}

	var res []*CharSample
	for _, samples := range perExample {
		res = append(res, samples...)
	}
	return res, nil
}

func (l *Loader) loadExample(ex *anysrc.Example) ([]*CharSample, error) {
	img, err := anywin.LoadImage(ex.ImagePath(l.Dir))
	if err != nil {
		return nil, err
	}
	word := []rune(ex.Word)
	boxes := ex.Boxes
	if boxes == nil {
		boxes = anysrc.UniformBoxes(word, img.Width, img.Height)
	}
	if len(boxes) != len(word) {
		return nil, fmt.Errorf("%d boxes for word %q", len(boxes), ex.Word)
	}

	resized := anywin.ResizeHeight(img, l.Height)
	if l.Depth == 1 {
		resized = resized.Gray()
	}
	scale := float64(resized.Width) / float64(img.Width)

	res := make([]*CharSample, len(word))
	for i, r := range word {
		label, err := l.Charset.Index(r)
		if err != nil {
			return nil, err
		}
		res[i] = &CharSample{
			Word:  resized,
			Left:  boxes[i].X * scale,
			Right: (boxes[i].X + boxes[i].Width) * scale,
			Label: label,
		}
	}
	return res, nil
}

// A CharIterator produces batches of character windows
// for a fixed number of epochs.
type CharIterator struct {
	Samples []*CharSample

	// Width and Height are the dimensions of a window.
	Width  int
	Height int

	BatchSize int
	NumEpochs int

	// Jitter is the maximum amount, as a fraction of the
	// character width, by which each edge of a character
	// box is randomly moved.
	Jitter float64

	// Shuffle indicates whether or not the samples are
	// re-ordered at the start of every epoch.
	Shuffle bool

	// Rand is the randomness source for shuffling and
	// jittering.
	// If it is nil, the global source is used.
	Rand *rand.Rand

	epoch int
	idx   int
	order []int
}

// Next returns the next batch.
// The last batch of an epoch may be smaller than
// BatchSize.
func (c *CharIterator) Next() (*Batch, error) {
	if len(c.Samples) == 0 || c.BatchSize <= 0 {
		return nil, io.EOF
	}
	if c.order == nil || c.idx == len(c.order) {
		if c.order != nil {
			c.epoch++
		}
		if c.epoch >= c.NumEpochs {
			return nil, io.EOF
		}
		c.startEpoch()
	}
	end := c.idx + c.BatchSize
	if end > len(c.order) {
		end = len(c.order)
	}
	batch := &Batch{Epoch: c.epoch}
	for _, i := range c.order[c.idx:end] {
		sample := c.Samples[i]
		batch.Windows = append(batch.Windows, c.window(sample).Pix)
		batch.Labels = append(batch.Labels, sample.Label)
	}
	c.idx = end
	return batch, nil
}

func (c *CharIterator) startEpoch() {
	c.idx = 0
	if c.order == nil {
		c.order = make([]int, len(c.Samples))
		for i := range c.order {
			c.order[i] = i
		}
	}
	if c.Shuffle {
		for i := range c.order {
			j := i + c.intn(len(c.order)-i)
			c.order[i], c.order[j] = c.order[j], c.order[i]
		}
	}
}

func (c *CharIterator) window(s *CharSample) *anywin.Image {
	left, right := s.Left, s.Right
	if c.Jitter != 0 {
		width := right - left
		left += (2*c.float() - 1) * c.Jitter * width
		right += (2*c.float() - 1) * c.Jitter * width
	}
	start := int(math.Floor(left))
	end := int(math.Ceil(right))
	if start < 0 {
		start = 0
	}
	if end > s.Word.Width {
		end = s.Word.Width
	}
	if end <= start {
		if start >= s.Word.Width {
			start = s.Word.Width - 1
		}
		end = start + 1
	}
	crop := s.Word.CropColumns(start, end)
	return anywin.Resize(crop, c.Width, c.Height)
}

func (c *CharIterator) intn(n int) int {
	if c.Rand != nil {
		return c.Rand.Intn(n)
	}
	return rand.Intn(n)
}

func (c *CharIterator) float() float64 {
	if c.Rand != nil {
		return c.Rand.Float64()
	}
	return rand.Float64()
}
