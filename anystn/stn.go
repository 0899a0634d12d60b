// Package anystn implements spatial transformer layers,
// which learn to undo affine distortions of their input
// images.
//
// For details, see https://arxiv.org/abs/1506.02025.
package anystn

import (
	"fmt"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// NumParams is the number of affine parameters predicted
// for each image.
const NumParams = 6

func init() {
	var t Transformer
	serializer.RegisterTypedDeserializer(t.SerializerType(), DeserializeTransformer)
}

// A Transformer warps each input image with an affine
// transformation predicted by its Localizer.
//
// All input and output tensors are row-major depth-minor.
type Transformer struct {
	Width  int
	Height int
	Depth  int

	// Localizer maps a batch of images to NumParams values
	// per image.
	// The values (a, b, c, d, e, f) map an output point
	// (x, y) in [-1, 1] coordinates to the input point
	// (a*x + b*y + c, d*x + e*y + f).
	Localizer anynet.Layer
}

// DeserializeTransformer deserializes a Transformer.
func DeserializeTransformer(d []byte) (*Transformer, error) {
	var w, h, depth serializer.Int
	var t Transformer
	if err := serializer.DeserializeAny(d, &w, &h, &depth, &t.Localizer); err != nil {
		return nil, essentials.AddCtx("deserialize Transformer", err)
	}
	t.Width = int(w)
	t.Height = int(h)
	t.Depth = int(depth)
	return &t, nil
}

// NewTransformer creates a Transformer with a two-layer
// localization network.
//
// The final layer starts at zero with an identity bias,
// so a new Transformer leaves its input unchanged.
func NewTransformer(c anyvec.Creator, width, height, depth, hidden int) *Transformer {
	out := anynet.NewFCZero(c, hidden, NumParams)
	out.Biases.Vector.SetData(c.MakeNumericList(IdentityParams()))
	return &Transformer{
		Width:  width,
		Height: height,
		Depth:  depth,
		Localizer: anynet.Net{
			anynet.NewFC(c, width*height*depth, hidden),
			anynet.Tanh,
			out,
		},
	}
}

// IdentityParams returns the affine parameters of the
// identity transformation.
func IdentityParams() []float64 {
	return []float64{1, 0, 0, 0, 1, 0}
}

// Apply applies the layer to a batch of images.
func (t *Transformer) Apply(in anydiff.Res, n int) anydiff.Res {
	if in.Output().Len() != n*t.Width*t.Height*t.Depth {
		panic("incorrect input size")
	}
	return anydiff.Pool(in, func(in anydiff.Res) anydiff.Res {
		params := t.Localizer.Apply(in, n)
		return Sample(in, params, t.Width, t.Height, t.Depth, n)
	})
}

// Parameters returns the parameters of the Localizer, if
// it has any.
func (t *Transformer) Parameters() []*anydiff.Var {
	if p, ok := t.Localizer.(anynet.Parameterizer); ok {
		return p.Parameters()
	}
	return nil
}

// SerializerType returns the unique ID used to serialize
// a Transformer with the serializer package.
func (t *Transformer) SerializerType() string {
	return "github.com/unixpickle/anychar/anystn.Transformer"
}

// Serialize serializes the Transformer.
func (t *Transformer) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		serializer.Int(t.Width),
		serializer.Int(t.Height),
		serializer.Int(t.Depth),
		t.Localizer,
	)
}

// Sample warps a batch of images using bilinear sampling.
//
// The params argument has NumParams values per image, as
// described for Transformer.Localizer.
// Samples outside of the input image read as zero.
func Sample(in, params anydiff.Res, width, height, depth, n int) anydiff.Res {
	if params.Output().Len() != n*NumParams {
		panic("incorrect parameter count")
	}
	res := &sampleRes{
		In:     in,
		Params: params,
		Width:  width,
		Height: height,
		Depth:  depth,
		N:      n,
		V:      anydiff.MergeVarSets(in.Vars(), params.Vars()),
	}
	inData := vectorFloats(in.Output())
	paramData := vectorFloats(params.Output())
	out := make([]float64, len(inData))
	imgSize := width * height * depth
	for b := 0; b < n; b++ {
		img := inData[b*imgSize : (b+1)*imgSize]
		theta := paramData[b*NumParams : (b+1)*NumParams]
		outImg := out[b*imgSize : (b+1)*imgSize]
		res.forEachPoint(theta, func(outIdx int, p *samplePoint) {
			for z := 0; z < depth; z++ {
				outImg[outIdx+z] = p.value(img, z)
			}
		})
	}
	c := in.Output().Creator()
	res.Out = c.MakeVectorData(c.MakeNumericList(out))
	return res
}

type sampleRes struct {
	In     anydiff.Res
	Params anydiff.Res
	Out    anyvec.Vector
	V      anydiff.VarSet

	Width  int
	Height int
	Depth  int
	N      int
}

func (s *sampleRes) Output() anyvec.Vector {
	return s.Out
}

func (s *sampleRes) Vars() anydiff.VarSet {
	return s.V
}

func (s *sampleRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	doIn := g.Intersects(s.In.Vars())
	doParams := g.Intersects(s.Params.Vars())
	if !doIn && !doParams {
		return
	}

	upstream := vectorFloats(u)
	inData := vectorFloats(s.In.Output())
	paramData := vectorFloats(s.Params.Output())
	inGrad := make([]float64, len(inData))
	paramGrad := make([]float64, len(paramData))

	imgSize := s.Width * s.Height * s.Depth
	for b := 0; b < s.N; b++ {
		img := inData[b*imgSize : (b+1)*imgSize]
		imgGrad := inGrad[b*imgSize : (b+1)*imgSize]
		up := upstream[b*imgSize : (b+1)*imgSize]
		theta := paramData[b*NumParams : (b+1)*NumParams]
		thetaGrad := paramGrad[b*NumParams : (b+1)*NumParams]
		s.forEachPoint(theta, func(outIdx int, p *samplePoint) {
			for z := 0; z < s.Depth; z++ {
				u := up[outIdx+z]
				if doIn {
					p.scatter(imgGrad, z, u)
				}
				if doParams {
					dx, dy := p.deriv(img, z)
					dx *= u * p.ScaleX
					dy *= u * p.ScaleY
					thetaGrad[0] += dx * p.OutX
					thetaGrad[1] += dx * p.OutY
					thetaGrad[2] += dx
					thetaGrad[3] += dy * p.OutX
					thetaGrad[4] += dy * p.OutY
					thetaGrad[5] += dy
				}
			}
		})
	}

	c := u.Creator()
	if doParams {
		s.Params.Propagate(c.MakeVectorData(c.MakeNumericList(paramGrad)), g)
	}
	if doIn {
		s.In.Propagate(c.MakeVectorData(c.MakeNumericList(inGrad)), g)
	}
}

// forEachPoint computes the sample point of every output
// pixel for one image.
func (s *sampleRes) forEachPoint(theta []float64, f func(outIdx int, p *samplePoint)) {
	var p samplePoint
	p.Width = s.Width
	p.Height = s.Height
	p.Depth = s.Depth
	p.ScaleX = float64(s.Width-1) / 2
	p.ScaleY = float64(s.Height-1) / 2
	for y := 0; y < s.Height; y++ {
		p.OutY = normCoord(y, s.Height)
		for x := 0; x < s.Width; x++ {
			p.OutX = normCoord(x, s.Width)
			srcX := theta[0]*p.OutX + theta[1]*p.OutY + theta[2]
			srcY := theta[3]*p.OutX + theta[4]*p.OutY + theta[5]
			p.setSource((srcX+1)*p.ScaleX, (srcY+1)*p.ScaleY)
			f(s.Depth*(x+s.Width*y), &p)
		}
	}
}

func normCoord(i, size int) float64 {
	if size <= 1 {
		return 0
	}
	return 2*float64(i)/float64(size-1) - 1
}

// A samplePoint is a location in an input image along
// with its bilinear interpolation weights.
type samplePoint struct {
	Width  int
	Height int
	Depth  int

	ScaleX float64
	ScaleY float64
	OutX   float64
	OutY   float64

	x0, y0 int
	fx, fy float64
}

func (s *samplePoint) setSource(px, py float64) {
	fx0 := math.Floor(px)
	fy0 := math.Floor(py)
	s.x0, s.y0 = int(fx0), int(fy0)
	s.fx, s.fy = px-fx0, py-fy0
}

// corners returns the four neighbor pixels and their
// weights, with -1 for neighbors outside the image.
func (s *samplePoint) corners() ([4]int, [4]float64) {
	var idxs [4]int
	for i, off := range [4][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		x, y := s.x0+off[0], s.y0+off[1]
		if x < 0 || y < 0 || x >= s.Width || y >= s.Height {
			idxs[i] = -1
		} else {
			idxs[i] = s.Depth * (x + s.Width*y)
		}
	}
	return idxs, [4]float64{
		(1 - s.fx) * (1 - s.fy),
		s.fx * (1 - s.fy),
		(1 - s.fx) * s.fy,
		s.fx * s.fy,
	}
}

func (s *samplePoint) value(img []float64, z int) float64 {
	idxs, weights := s.corners()
	var res float64
	for i, idx := range idxs {
		if idx >= 0 {
			res += weights[i] * img[idx+z]
		}
	}
	return res
}

func (s *samplePoint) scatter(grad []float64, z int, u float64) {
	idxs, weights := s.corners()
	for i, idx := range idxs {
		if idx >= 0 {
			grad[idx+z] += weights[i] * u
		}
	}
}

// deriv computes the derivative of the sampled value
// with respect to the source pixel coordinates.
func (s *samplePoint) deriv(img []float64, z int) (dx, dy float64) {
	idxs, _ := s.corners()
	var v [4]float64
	for i, idx := range idxs {
		if idx >= 0 {
			v[i] = img[idx+z]
		}
	}
	dx = (1-s.fy)*(v[1]-v[0]) + s.fy*(v[3]-v[2])
	dy = (1-s.fx)*(v[2]-v[0]) + s.fx*(v[3]-v[1])
	return
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
