package main

import (
	"flag"
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

type options struct {
	cfg        config
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &options{cfg: defaultConfig()}

	root := &cobra.Command{
		Use:           "convgen",
		Short:         "Metal convolution kernel generator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.configPath == "" {
				return nil
			}
			return opts.cfg.loadFile(opts.configPath, cmd.Flags())
		},
	}

	goFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(goFlags)
	root.PersistentFlags().AddGoFlagSet(goFlags)
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML file with the GPU and convolution description")
	opts.cfg.bindFlags(root.PersistentFlags())

	root.AddCommand(
		newSourceCommand(opts),
		newPlanCommand(opts),
		newVerifyCommand(opts),
		newVersionCommand(),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "convgen %s\n", version)
		},
	}
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// fill writes uniform values in [-1, 1).
func fill(rng *rand.Rand, data []float32) {
	for i := range data {
		data[i] = rng.Float32()*2 - 1
	}
}
