package conv

import (
	"k8s.io/klog/v2"

	"github.com/born-ml/convgen/internal/task"
	"github.com/born-ml/convgen/internal/tensor"
)

// Dispatcher turns runtime shapes into launch geometry and the per-shape
// scalar arguments of a kernel generated from Params.
type Dispatcher struct {
	Params Params
}

var (
	_ task.Updater = Dispatcher{}
	_ task.Resizer = Dispatcher{}
)

func toUint3(v tensor.Int3) tensor.Uint3 {
	return tensor.Uint3{X: uint32(v.X), Y: uint32(v.Y), Z: uint32(v.Z)}
}

// DispatchSizes returns the work-group size and launch-group count for the
// first destination tensor.
func (d Dispatcher) DispatchSizes(_, dst []tensor.BHWC) (groupSize, groupsCount tensor.Uint3) {
	p := d.Params
	grid := gridSize(dst[0], p.BlockSize)
	wg := p.WorkGroupSize
	groupSize = toUint3(wg)

	var counts tensor.Int3
	switch {
	case p.LinearWHS:
		counts = tensor.Int3{X: tensor.DivideRoundUp(grid.Product(), wg.X), Y: 1, Z: 1}
	case p.LinearWH:
		perAxis := tensor.Int3{
			X: tensor.DivideRoundUp(grid.X*grid.Y, wg.X),
			Y: tensor.DivideRoundUp(grid.Z, wg.Y),
			Z: 1,
		}
		counts = tensor.Int3{X: perAxis.At(p.LaunchOrder.X), Y: perAxis.At(p.LaunchOrder.Y), Z: 1}
	default:
		perAxis := tensor.Int3{
			X: tensor.DivideRoundUp(grid.X, wg.X),
			Y: tensor.DivideRoundUp(grid.Y, wg.Y),
			Z: tensor.DivideRoundUp(grid.Z, wg.Z),
		}
		counts = tensor.Int3{
			X: perAxis.At(p.LaunchOrder.X),
			Y: perAxis.At(p.LaunchOrder.Y),
			Z: perAxis.At(p.LaunchOrder.Z),
		}
	}
	groupsCount = toUint3(counts)
	klog.V(4).InfoS("conv: dispatch", "dst", dst[0], "grid", grid, "groupSize", groupSize, "groupsCount", groupsCount)
	return groupSize, groupsCount
}

// Update binds task_size_x and task_size_y for the current destination shape.
func (d Dispatcher) Update(_, dst []tensor.BHWC, args task.ArgumentsBinder) error {
	grid := gridSize(dst[0], d.Params.BlockSize)
	if err := args.SetInt("task_size_x", grid.X); err != nil {
		return err
	}
	return args.SetInt("task_size_y", grid.X*grid.Y)
}

// Plan is DispatchSizes for a single destination tensor.
func (d Dispatcher) Plan(dst tensor.BHWC) (groupSize, groupsCount tensor.Uint3) {
	return d.DispatchSizes(nil, []tensor.BHWC{dst})
}
