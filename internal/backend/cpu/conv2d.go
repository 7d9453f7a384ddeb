package cpu

import (
	"fmt"

	"github.com/born-ml/convgen/internal/conv"
	"github.com/born-ml/convgen/internal/parallel"
	"github.com/born-ml/convgen/internal/tensor"
)

// OutputShape returns the destination shape of attr applied to src.
func OutputShape(src tensor.BHWC, attr conv.Attributes) tensor.BHWC {
	w := attr.Weights.Shape
	pad := attr.Padding
	outSize := func(in, prepended, appended, kernel, dilation, stride int) int {
		return (in+prepended+appended-dilation*(kernel-1)-1)/stride + 1
	}
	return tensor.BHWC{
		B: src.B,
		H: outSize(src.H, pad.Prepended.H, pad.Appended.H, w.H, attr.Dilations.H, attr.Strides.H),
		W: outSize(src.W, pad.Prepended.W, pad.Appended.W, w.W, attr.Dilations.W, attr.Strides.W),
		C: w.O,
	}
}

func checkConv2D(src tensor.Activations, attr conv.Attributes) tensor.BHWC {
	if err := attr.Validate(); err != nil {
		panic(fmt.Sprintf("conv2d: %v", err))
	}
	if src.Shape.C != attr.Weights.Shape.I {
		panic(fmt.Sprintf("conv2d: input channels %d != weight input channels %d", src.Shape.C, attr.Weights.Shape.I))
	}
	dst := OutputShape(src.Shape, attr)
	if dst.H <= 0 || dst.W <= 0 {
		panic(fmt.Sprintf("conv2d: invalid output dimensions %v (check stride/padding)", dst))
	}
	return dst
}

// Conv2D performs a direct 2-D convolution using im2col.
//
// Each output position becomes one row of kh*kw*I source values in HWI
// order, which is the row layout of an OHWI weight tensor, so every output
// channel is a dot product of a column row and a weight row.
func (cpu *CPUBackend) Conv2D(src tensor.Activations, attr conv.Attributes) tensor.Activations {
	dstShape := checkConv2D(src, attr)
	out := tensor.NewActivations(dstShape)

	w := attr.Weights
	rowLen := w.Shape.H * w.Shape.W * w.Shape.I
	rows := dstShape.B * dstShape.H * dstShape.W

	parallel.Chunks(rows, cpu.parallel, func(start, end int) {
		col := make([]float32, rowLen)
		for row := start; row < end; row++ {
			b := row / (dstShape.H * dstShape.W)
			oy := row / dstShape.W % dstShape.H
			ox := row % dstShape.W
			im2colRow(col, src, attr, b, oy, ox)

			for o := 0; o < w.Shape.O; o++ {
				weights := w.Data[o*rowLen : (o+1)*rowLen]
				var sum float32
				for k, v := range col {
					sum += v * weights[k]
				}
				if o < len(attr.Bias.Data) {
					sum += attr.Bias.Data[o]
				}
				out.Data[row*dstShape.C+o] = sum
			}
		}
	})
	return out
}

// im2colRow gathers the receptive field of output (b, oy, ox). Positions in
// the padding read as zero.
func im2colRow(col []float32, src tensor.Activations, attr conv.Attributes, b, oy, ox int) {
	w := attr.Weights.Shape
	k := 0
	for ky := 0; ky < w.H; ky++ {
		sy := oy*attr.Strides.H + ky*attr.Dilations.H - attr.Padding.Prepended.H
		for kx := 0; kx < w.W; kx++ {
			sx := ox*attr.Strides.W + kx*attr.Dilations.W - attr.Padding.Prepended.W
			inside := sy >= 0 && sy < src.Shape.H && sx >= 0 && sx < src.Shape.W
			for i := 0; i < w.I; i++ {
				if inside {
					col[k] = src.Data[src.Index(b, sy, sx, i)]
				} else {
					col[k] = 0
				}
				k++
			}
		}
	}
}

// Conv2DBlocked evaluates the convolution the way a kernel generated from
// p does: through the reordered weight buffer and the padded bias, one
// output tile of p.BlockSize.Z slices at a time, with the inner 4x4 weight
// block consumed in p.WeightLayout order.
func (cpu *CPUBackend) Conv2DBlocked(src tensor.Activations, attr conv.Attributes, p conv.Params) tensor.Activations {
	dstShape := checkConv2D(src, attr)
	out := tensor.NewActivations(dstShape)

	ws := attr.Weights.Shape
	weights := conv.ReorderWeights(attr.Weights, p)
	bias := conv.PadBias(attr.Bias, ws.O, p)
	srcSlices := tensor.Slices(ws.I)
	bz := p.BlockSize.Z
	blocks := tensor.DivideRoundUp(dstShape.Slices(), bz)

	// lane returns source channel c, or zero past the last real channel.
	lane := func(b, y, x, c int) float32 {
		if c >= src.Shape.C {
			return 0
		}
		return src.Data[src.Index(b, y, x, c)]
	}

	parallel.ForGrid(dstShape.B, blocks, cpu.parallel, func(b, d int) {
		acc := make([]float32, bz*4)
		for oy := 0; oy < dstShape.H; oy++ {
			for ox := 0; ox < dstShape.W; ox++ {
				clear(acc)
				ptr := d * ws.H * ws.W * srcSlices * bz * 16
				for ky := 0; ky < ws.H; ky++ {
					sy := oy*attr.Strides.H + ky*attr.Dilations.H - attr.Padding.Prepended.H
					for kx := 0; kx < ws.W; kx++ {
						sx := ox*attr.Strides.W + kx*attr.Dilations.W - attr.Padding.Prepended.W
						inside := sy >= 0 && sy < src.Shape.H && sx >= 0 && sx < src.Shape.W
						for s := 0; s < srcSlices; s++ {
							for k := 0; k < bz; k++ {
								if inside {
									accumulateBlock(acc[k*4:k*4+4], weights[ptr:ptr+16], p.WeightLayout, func(i int) float32 {
										return lane(b, sy, sx, s*4+i)
									})
								}
								ptr += 16
							}
						}
					}
				}
				for k := 0; k < bz; k++ {
					for j := 0; j < 4; j++ {
						oc := (d*bz+k)*4 + j
						if oc < dstShape.C {
							out.Data[out.Index(b, oy, ox, oc)] = acc[k*4+j] + bias[oc]
						}
					}
				}
			}
		}
	})
	return out
}

// accumulateBlock applies one 4x4 weight block to one source slice.
func accumulateBlock(acc, block []float32, layout conv.WeightsLayout, src func(i int) float32) {
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			w := block[j*4+i]
			if layout == conv.O4I4 {
				// r.j += dot(w_j, src)
				acc[j] += w * src(i)
			} else {
				// r += w_j * src.j
				acc[i] += w * src(j)
			}
		}
	}
}
