package main

import (
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"

	"github.com/born-ml/convgen/backend/cpu"
	"github.com/born-ml/convgen/conv"
	"github.com/born-ml/convgen/tensor"
)

// compiled is one resolved and compiled request.
type compiled struct {
	profile conv.Profile
	req     conv.Request
	task    *conv.Task
}

func compile(cfg *config) (compiled, error) {
	profile, err := cfg.profile()
	if err != nil {
		return compiled{}, err
	}
	req, err := cfg.request()
	if err != nil {
		return compiled{}, err
	}
	klog.V(2).InfoS("compiling", "profile", profile, "dst", req.Dst, "winograd", req.Winograd)
	t, err := req.Compile(profile)
	if err != nil {
		return compiled{}, err
	}
	return compiled{profile: profile, req: req, task: t}, nil
}

func newSourceCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "source",
		Short: "Print the generated kernel source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := compile(&opts.cfg)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), c.task.ShaderSource)
			return err
		},
	}
}

type bufferReport struct {
	Type   string `yaml:"type"`
	Memory string `yaml:"memory"`
	Bytes  int    `yaml:"bytes"`
}

type planReport struct {
	GPU       string                  `yaml:"gpu"`
	Family    string                  `yaml:"family"`
	Precision string                  `yaml:"precision"`
	Dst       string                  `yaml:"dst"`
	Params    string                  `yaml:"params"`
	WorkGroup string                  `yaml:"work_group"`
	Groups    string                  `yaml:"groups"`
	Args      map[string]int          `yaml:"args"`
	Buffers   map[string]bufferReport `yaml:"buffers"`
}

func buildPlan(profile conv.Profile, t *conv.Task, dst tensor.BHWC) (planReport, error) {
	dispatcher, ok := t.Update.(conv.Dispatcher)
	if !ok {
		return planReport{}, errors.Errorf("unexpected updater %T", t.Update)
	}
	if err := t.Update.Update(nil, []tensor.BHWC{dst}, &t.Args); err != nil {
		return planReport{}, errors.Wrap(err, "bind arguments")
	}
	group, groups := t.Resize.DispatchSizes(nil, []tensor.BHWC{dst})

	return planReport{
		GPU:       profile.String(),
		Family:    profile.Family().String(),
		Precision: t.Def.Precision.String(),
		Dst:       dst.String(),
		Params:    dispatcher.Params.String(),
		WorkGroup: group.String(),
		Groups:    groups.String(),
		Args: lo.Associate(t.Args.IntNames(), func(name string) (string, int) {
			v, _ := t.Args.Int(name)
			return name, v
		}),
		Buffers: lo.Associate(t.Args.BufferNames(), func(name string) (string, bufferReport) {
			b, _ := t.Args.Buffer(name)
			return name, bufferReport{Type: b.ElementType.String(), Memory: b.MemoryType.String(), Bytes: b.Size()}
		}),
	}, nil
}

func newPlanCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the tiling configuration and dispatch geometry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := compile(&opts.cfg)
			if err != nil {
				return err
			}
			report, err := buildPlan(c.profile, c.task, c.req.Dst)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(report); err != nil {
				return errors.Wrap(err, "encode plan")
			}
			return enc.Close()
		},
	}
}

// maxAbsDiff returns the largest element-wise distance of a and b.
func maxAbsDiff(a, b []float32) float64 {
	return lo.Max(lo.Map(a, func(v float32, i int) float64 {
		return math.Abs(float64(v) - float64(b[i]))
	}))
}

func verify(cfg config, bothLayouts bool, tolerance float64, out io.Writer) error {
	if cfg.Winograd {
		return errors.New("verify checks the direct path; drop --winograd")
	}
	profile, err := cfg.profile()
	if err != nil {
		return err
	}
	req, err := cfg.request()
	if err != nil {
		return err
	}
	src := tensor.NewActivations(cfg.srcShape())
	fill(newRand(cfg.Seed+1), src.Data)

	backend := cpu.New()
	want := backend.Conv2D(src, req.Attr)

	p := conv.SelectParams(profile, req.Attr, req.Def.Precision, req.Dst)
	layouts := []conv.WeightsLayout{p.WeightLayout}
	if bothLayouts {
		layouts = []conv.WeightsLayout{conv.O4I4, conv.I4O4}
	}
	for _, layout := range layouts {
		p.WeightLayout = layout
		got := backend.Conv2DBlocked(src, req.Attr, p)
		diff := maxAbsDiff(want.Data, got.Data)
		fmt.Fprintf(out, "%s: max abs diff %.3g\n", p, diff)
		if diff > tolerance {
			return errors.Errorf("layout %s differs from the direct convolution by %.3g", layout, diff)
		}
	}
	return nil
}

func newVerifyCommand(opts *options) *cobra.Command {
	var (
		bothLayouts bool
		tolerance   float64
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the selected tiling against the CPU reference convolution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return verify(opts.cfg, bothLayouts, tolerance, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&bothLayouts, "both-layouts", false, "also check the other inner weight layout")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 1e-4, "largest accepted absolute difference")
	return cmd
}
