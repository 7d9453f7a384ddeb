package conv

import (
	"github.com/born-ml/convgen/internal/tensor"
)

// ReorderedWeightsLen is the number of floats ReorderWeights produces.
func ReorderedWeightsLen(shape tensor.OHWI, p Params) int {
	dstSlices := tensor.Slices(shape.O)
	srcSlices := tensor.Slices(shape.I)
	return shape.W * shape.H * tensor.AlignByN(dstSlices, p.BlockSize.Z) * 4 * srcSlices * 4
}

// ReorderWeights rearranges OHWI weights into the blocked layout read by
// the generated kernel:
//
//	[dst slice block][kernel y][kernel x][src slice][block z][4][4]
//
// For O4I4 the innermost index is the input lane; for I4O4 it is the output
// lane. Channels added by 4-alignment are written as zero.
func ReorderWeights(w tensor.Weights, p Params) []float32 {
	shape := w.Shape
	dstSlices := tensor.Slices(shape.O)
	srcSlices := tensor.Slices(shape.I)
	out := make([]float32, ReorderedWeightsLen(shape, p))
	o4i4 := p.WeightLayout == O4I4

	counter := 0
	for d := 0; d < tensor.DivideRoundUp(dstSlices, p.BlockSize.Z); d++ {
		for y := 0; y < shape.H; y++ {
			for x := 0; x < shape.W; x++ {
				for s := 0; s < srcSlices; s++ {
					for k := 0; k < p.BlockSize.Z; k++ {
						for j := 0; j < 4; j++ {
							for i := 0; i < 4; i++ {
								var srcCh, dstCh int
								if o4i4 {
									srcCh = s*4 + i
									dstCh = (d*p.BlockSize.Z+k)*4 + j
								} else {
									srcCh = s*4 + j
									dstCh = (d*p.BlockSize.Z+k)*4 + i
								}
								if srcCh < shape.I && dstCh < shape.O {
									out[counter] = w.At(dstCh, y, x, srcCh)
								}
								counter++
							}
						}
					}
				}
			}
		}
	}
	return out
}

// PaddedBiasLen is the number of floats PadBias produces.
func PaddedBiasLen(dstChannels int, p Params) int {
	return tensor.AlignByN(tensor.Slices(dstChannels), p.BlockSize.Z) * 4
}

// PadBias zero-extends the bias to whole slice blocks.
func PadBias(b tensor.Linear, dstChannels int, p Params) []float32 {
	out := make([]float32, PaddedBiasLen(dstChannels, p))
	copy(out, b.Data)
	return out
}
