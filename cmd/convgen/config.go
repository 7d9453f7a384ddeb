package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/convgen/backend/cpu"
	"github.com/born-ml/convgen/conv"
	"github.com/born-ml/convgen/tensor"
)

// hwValue is an HxW pair usable both as a flag and as a YAML scalar.
// A single number sets both axes.
type hwValue tensor.HW

var _ pflag.Value = (*hwValue)(nil)

func (v *hwValue) String() string {
	return fmt.Sprintf("%dx%d", v.H, v.W)
}

func (v *hwValue) Set(s string) error {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) > 2 {
		return errors.Errorf("%q is not HxW", s)
	}
	var dims [2]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return errors.Wrapf(err, "%q is not HxW", s)
		}
		dims[i] = n
	}
	if len(parts) == 1 {
		dims[1] = dims[0]
	}
	*v = hwValue{H: dims[0], W: dims[1]}
	return nil
}

func (v *hwValue) Type() string {
	return "HxW"
}

func (v *hwValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: expected HxW scalar", node.Line)
	}
	return errors.Wrapf(v.Set(node.Value), "line %d", node.Line)
}

func (v hwValue) MarshalYAML() (any, error) {
	return v.String(), nil
}

// config describes the target GPU and one convolution.
type config struct {
	Vendor      string  `yaml:"vendor"`
	Device      string  `yaml:"device"`
	Detect      bool    `yaml:"detect"`
	Precision   string  `yaml:"precision"`
	Batch       int     `yaml:"batch"`
	Src         hwValue `yaml:"src"`
	SrcChannels int     `yaml:"src_channels"`
	DstChannels int     `yaml:"dst_channels"`
	Kernel      hwValue `yaml:"kernel"`
	Stride      hwValue `yaml:"stride"`
	Dilation    hwValue `yaml:"dilation"`
	PadBefore   hwValue `yaml:"pad_before"`
	PadAfter    hwValue `yaml:"pad_after"`
	Bias        bool    `yaml:"bias"`
	Winograd    bool    `yaml:"winograd"`
	Seed        uint64  `yaml:"seed"`
}

func defaultConfig() config {
	return config{
		Vendor:      "apple",
		Device:      "Apple A12 GPU",
		Precision:   "f32",
		Batch:       1,
		Src:         hwValue{H: 32, W: 32},
		SrcChannels: 16,
		DstChannels: 16,
		Kernel:      hwValue{H: 3, W: 3},
		Stride:      hwValue{H: 1, W: 1},
		Dilation:    hwValue{H: 1, W: 1},
		PadBefore:   hwValue{H: 1, W: 1},
		PadAfter:    hwValue{H: 1, W: 1},
		Bias:        true,
		Seed:        1,
	}
}

func (c *config) bindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Vendor, "vendor", c.Vendor, "GPU vendor (apple, intel, amd, nvidia, qualcomm, arm)")
	fs.StringVar(&c.Device, "device", c.Device, "GPU device name as reported by the driver")
	fs.BoolVar(&c.Detect, "detect", c.Detect, "query the system GPU adapter instead of --vendor and --device")
	fs.StringVar(&c.Precision, "precision", c.Precision, "calculation precision (f32, f32_f16, f16)")
	fs.IntVar(&c.Batch, "batch", c.Batch, "batch size")
	fs.Var(&c.Src, "src", "source spatial size")
	fs.IntVar(&c.SrcChannels, "src-channels", c.SrcChannels, "source channels")
	fs.IntVar(&c.DstChannels, "dst-channels", c.DstChannels, "destination channels")
	fs.Var(&c.Kernel, "kernel", "kernel size")
	fs.Var(&c.Stride, "stride", "stride")
	fs.Var(&c.Dilation, "dilation", "dilation")
	fs.Var(&c.PadBefore, "pad-before", "zero padding before each axis")
	fs.Var(&c.PadAfter, "pad-after", "zero padding after each axis")
	fs.BoolVar(&c.Bias, "bias", c.Bias, "add a bias vector")
	fs.BoolVar(&c.Winograd, "winograd", c.Winograd, "use the Winograd 4x4 to 6x6 path")
	fs.Uint64Var(&c.Seed, "seed", c.Seed, "seed for generated weights and inputs")
}

// loadFile merges a YAML file into c. Flags set on the command line keep
// their values.
func (c *config) loadFile(path string, fs *pflag.FlagSet) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config")
	}
	changed := map[string]string{}
	fs.Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	for name, value := range changed {
		if err := fs.Set(name, value); err != nil {
			return errors.Wrapf(err, "reapply --%s", name)
		}
	}
	return nil
}

func (c *config) profile() (conv.Profile, error) {
	if c.Detect {
		p, err := conv.DetectProfile()
		return p, errors.Wrap(err, "detect GPU")
	}
	return conv.ProfileFromDevice(conv.ParseVendor(c.Vendor), c.Device), nil
}

func (c *config) precision() (tensor.Precision, error) {
	p, ok := tensor.ParsePrecision(c.Precision)
	if !ok {
		return 0, errors.Errorf("unknown precision %q", c.Precision)
	}
	return p, nil
}

func (c *config) srcShape() tensor.BHWC {
	return tensor.BHWC{B: c.Batch, H: c.Src.H, W: c.Src.W, C: c.SrcChannels}
}

// attributes builds the convolution with deterministic pseudo-random
// weights and bias.
func (c *config) attributes() (conv.Attributes, error) {
	shape := tensor.OHWI{O: c.DstChannels, H: c.Kernel.H, W: c.Kernel.W, I: c.SrcChannels}
	if err := shape.Validate(); err != nil {
		return conv.Attributes{}, errors.Wrap(err, "weights")
	}
	rng := newRand(c.Seed)
	attr := conv.Attributes{
		Weights:   tensor.NewWeights(shape),
		Strides:   tensor.HW(c.Stride),
		Dilations: tensor.HW(c.Dilation),
		Padding: conv.Padding{
			Prepended: tensor.HW(c.PadBefore),
			Appended:  tensor.HW(c.PadAfter),
		},
	}
	fill(rng, attr.Weights.Data)
	if c.Bias {
		attr.Bias = tensor.Linear{Data: make([]float32, c.DstChannels)}
		fill(rng, attr.Bias.Data)
	}
	return attr, attr.Validate()
}

// request resolves the configuration into one compile request.
func (c *config) request() (conv.Request, error) {
	precision, err := c.precision()
	if err != nil {
		return conv.Request{}, err
	}
	attr, err := c.attributes()
	if err != nil {
		return conv.Request{}, err
	}
	src := c.srcShape()
	if err := src.Validate(); err != nil {
		return conv.Request{}, errors.Wrap(err, "source")
	}
	dst := cpu.OutputShape(src, attr)
	if err := dst.Validate(); err != nil {
		return conv.Request{}, errors.Wrapf(err, "destination of %v", src)
	}
	if c.Winograd {
		// The multiply stage runs over 36 tile rows and one column per
		// 4x4 output tile.
		tiles := tensor.DivideRoundUp(dst.H, 4) * tensor.DivideRoundUp(dst.W, 4)
		dst = tensor.BHWC{B: dst.B, H: 36, W: tiles, C: dst.C}
	}
	return conv.Request{
		Def:      conv.NewOperationDef(precision),
		Dst:      dst,
		Attr:     attr,
		Winograd: c.Winograd,
	}, nil
}
