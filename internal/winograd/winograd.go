// Package winograd holds the filter-side transforms of the Winograd
// F(4x4, 3x3) convolution, which computes a 4x4 output tile from a 6x6
// input tile.
//
// G uses the interpolation points 0, 1, -1, 2, -2 and infinity. The input
// transform Bᵀ and output transform Aᵀ applied around the multiply stage
// must be built from the same points. A host whose tile transforms use a
// different point set (for example ±√2/2 and ±√2) must supply its own
// filter transform to the assembler instead of Rearrange4x4To6x6.
package winograd

import (
	"fmt"

	"github.com/born-ml/convgen/internal/tensor"
)

// TileSize is the edge of the transformed tile.
const TileSize = 6

// g is the 6x3 filter transform matrix G of F(4x4, 3x3).
var g = [TileSize][3]float32{
	{1.0 / 4, 0, 0},
	{-1.0 / 6, -1.0 / 6, -1.0 / 6},
	{-1.0 / 6, 1.0 / 6, -1.0 / 6},
	{1.0 / 24, 1.0 / 12, 1.0 / 6},
	{1.0 / 24, -1.0 / 12, 1.0 / 6},
	{0, 0, 1},
}

// TransformFilter computes G·f·Gᵀ for one 3x3 filter given row-major.
func TransformFilter(f [9]float32) [TileSize * TileSize]float32 {
	// gf = G·f, 6x3
	var gf [TileSize][3]float32
	for r := 0; r < TileSize; r++ {
		for c := 0; c < 3; c++ {
			var sum float32
			for k := 0; k < 3; k++ {
				sum += g[r][k] * f[k*3+c]
			}
			gf[r][c] = sum
		}
	}
	var out [TileSize * TileSize]float32
	for r := 0; r < TileSize; r++ {
		for c := 0; c < TileSize; c++ {
			var sum float32
			for k := 0; k < 3; k++ {
				sum += gf[r][k] * g[c][k]
			}
			out[r*TileSize+c] = sum
		}
	}
	return out
}

// Rearrange4x4To6x6 transforms every 3x3 filter of w. The result has shape
// OHWI(O, 36, 1, I) with the 6x6 tile flattened row-major into H.
//
// It panics if w is not a 3x3 filter bank.
func Rearrange4x4To6x6(w tensor.Weights) tensor.Weights {
	shape := w.Shape
	if shape.H != 3 || shape.W != 3 {
		panic(fmt.Sprintf("winograd: want 3x3 weights, got %v", shape))
	}
	out := tensor.NewWeights(tensor.OHWI{O: shape.O, H: TileSize * TileSize, W: 1, I: shape.I})
	for o := 0; o < shape.O; o++ {
		for i := 0; i < shape.I; i++ {
			var f [9]float32
			for y := 0; y < 3; y++ {
				for x := 0; x < 3; x++ {
					f[y*3+x] = w.At(o, y, x, i)
				}
			}
			t := TransformFilter(f)
			for k, v := range t {
				out.Set(o, k, 0, i, v)
			}
		}
	}
	return out
}
