package anymodel

import (
	"errors"
	"fmt"

	"github.com/unixpickle/anychar/anybatch"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// Train performs one Adam step on a batch and reports the
// model's performance before the step.
//
// The dropout argument ranges from 0 (no dropout) to 1
// (full dropout).
func (m *Model) Train(b *anybatch.Batch, dropout float64) (*anybatch.Result, error) {
	if err := m.checkBatch(b); err != nil {
		return nil, essentials.AddCtx("train", err)
	}
	m.dropout.Enabled = dropout > 0
	m.dropout.KeepProb = 1 - DropoutScale*dropout

	names := m.ParamSets()
	subsets := make([][]*anydiff.Var, len(names))
	var all []*anydiff.Var
	for i, name := range names {
		params, err := m.Params(name)
		if err != nil {
			return nil, essentials.AddCtx("train", err)
		}
		subsets[i] = params
		all = append(all, params...)
	}
	grad := anydiff.NewGrad(all...)

	cost, out := m.cost(b)
	res := m.result(b, cost, out)

	c := m.Creator
	cost.Propagate(c.MakeVectorData(c.MakeNumericList([]float64{1})), grad)

	for i, name := range names {
		if len(subsets[i]) == 0 {
			continue
		}
		sub := anydiff.Grad{}
		for _, p := range subsets[i] {
			sub[p] = grad[p]
		}
		sub = m.adam(name).Transform(sub)
		sub.Scale(c.MakeNumeric(-m.rate(name)))
		sub.AddToVars()
	}

	return res, nil
}

// Test reports the model's performance on a batch with
// dropout disabled.
func (m *Model) Test(b *anybatch.Batch) (*anybatch.Result, error) {
	if err := m.checkBatch(b); err != nil {
		return nil, essentials.AddCtx("test", err)
	}
	m.dropout.Enabled = false
	cost, out := m.cost(b)
	return m.result(b, cost, out), nil
}

// SaveParams encodes the parameters of a subset.
func (m *Model) SaveParams(name string) ([]byte, error) {
	params, err := m.Params(name)
	if err != nil {
		return nil, essentials.AddCtx("save params", err)
	}
	var vecObjs []interface{}
	for _, p := range params {
		vecObjs = append(vecObjs, &anyvecsave.S{Vector: p.Vector})
	}
	return serializer.SerializeAny(vecObjs...)
}

// LoadParams replaces the parameters of a subset with
// ones from SaveParams.
func (m *Model) LoadParams(name string, data []byte) error {
	params, err := m.Params(name)
	if err != nil {
		return essentials.AddCtx("load params", err)
	}
	var dests []interface{}
	for range params {
		dests = append(dests, new(*anyvecsave.S))
	}
	if err := serializer.DeserializeAny(data, dests...); err != nil {
		return essentials.AddCtx("load params", err)
	}
	for i, p := range params {
		vec := (*dests[i].(**anyvecsave.S)).Vector
		if vec.Len() != p.Vector.Len() {
			return fmt.Errorf("load params: %s parameter %d has length %d (expected %d)",
				name, i, vec.Len(), p.Vector.Len())
		}
		p.Vector.SetData(m.Creator.MakeNumericList(vectorFloats(vec)))
	}
	return nil
}

func (m *Model) checkBatch(b *anybatch.Batch) error {
	if b.Len() == 0 {
		return errors.New("empty batch")
	} else if len(b.Windows) != b.Len() {
		return fmt.Errorf("%d windows for %d labels", len(b.Windows), b.Len())
	}
	for _, label := range b.Labels {
		if label < 0 || label >= m.NumClasses {
			return fmt.Errorf("label %d out of range", label)
		}
	}
	return nil
}

// cost computes the mean cross-entropy loss and the log
// probabilities for a batch.
func (m *Model) cost(b *anybatch.Batch) (anydiff.Res, anyvec.Vector) {
	n := b.Len()
	actual := m.Apply(m.inputs(b.Windows), n)
	oneHot := make([]float64, n*m.NumClasses)
	for i, label := range b.Labels {
		oneHot[i*m.NumClasses+label] = 1
	}
	c := m.Creator
	desired := anydiff.NewConst(c.MakeVectorData(c.MakeNumericList(oneHot)))
	costs := anynet.DotCost{}.Cost(desired, actual, n)
	return anydiff.Scale(anydiff.Sum(costs), c.MakeNumeric(1/float64(n))), actual.Output()
}

func (m *Model) result(b *anybatch.Batch, cost anydiff.Res,
	out anyvec.Vector) *anybatch.Result {
	preds := argmax(vectorFloats(out), m.NumClasses)
	correct := make([]bool, len(preds))
	for i, p := range preds {
		correct[i] = p == b.Labels[i]
	}
	return &anybatch.Result{
		Loss:    numericFloat(anyvec.Sum(cost.Output())),
		Correct: correct,
	}
}

func (m *Model) adam(name string) *anysgd.Adam {
	if m.adams == nil {
		m.adams = map[string]*anysgd.Adam{}
	}
	if a, ok := m.adams[name]; ok {
		return a
	}
	a := &anysgd.Adam{}
	m.adams[name] = a
	return a
}

func (m *Model) rate(name string) float64 {
	if name == STNParams {
		return m.LearningRate * STNRateScale
	}
	return m.LearningRate
}

func numericFloat(n anyvec.Numeric) float64 {
	switch n := n.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		panic(fmt.Sprintf("unsupported numeric: %T", n))
	}
}
