// Package cli holds the furrow command tree.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/FranksOps/furrow/internal/config"
)

type options struct {
	v          *viper.Viper
	configFile string
}

// NewRootCmd builds the furrow command tree around a fresh viper instance.
func NewRootCmd() *cobra.Command {
	opts := &options{v: config.New()}

	root := &cobra.Command{
		Use:           "furrow",
		Short:         "furrow collects keyword research data for seed phrases and clusters it by topic.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "YAML config file")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("log-file", "", "also write logs to this file")

	root.AddCommand(newResearchCmd(opts), newClustersCmd(opts))
	return root
}

// ExecuteContext runs the command tree and exits non-zero on failure.
func ExecuteContext(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "furrow:", err)
		os.Exit(1)
	}
}

// bindFlags points viper keys at the command's flags. It runs in PreRunE so
// commands sharing a key do not overwrite each other's binding.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) error {
	for flag, key := range keys {
		f := fs.Lookup(flag)
		if f == nil {
			return fmt.Errorf("context: unknown flag %q", flag)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("context: bind %s: %w", flag, err)
		}
	}
	return nil
}

var persistentKeys = map[string]string{
	"log-level": "log_level",
	"log-file":  "log_file",
}
