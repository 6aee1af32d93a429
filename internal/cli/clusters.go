package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FranksOps/furrow/internal/cluster"
	"github.com/FranksOps/furrow/internal/config"
	"github.com/FranksOps/furrow/internal/keyword"
	"github.com/FranksOps/furrow/internal/report"
	"github.com/FranksOps/furrow/internal/storage"
	"github.com/FranksOps/furrow/internal/storage/csvbackend"
	"github.com/FranksOps/furrow/internal/storage/jsonbackend"
)

var clustersKeys = map[string]string{
	"clusters": "clusters_file",
}

type clustersFlags struct {
	out       string
	seed      string
	kind      string
	source    string
	minVolume int
}

func newClustersCmd(opts *options) *cobra.Command {
	var flags clustersFlags

	cmd := &cobra.Command{
		Use:   "clusters <records.csv|records.ndjson>",
		Short: "Cluster the keywords of an earlier research run again, e.g. with a tuned table.",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(opts.v, cmd.Flags(), clustersKeys); err != nil {
				return err
			}
			return bindFlags(opts.v, cmd.Root().PersistentFlags(), persistentKeys)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read(opts.v, opts.configFile)
			if err != nil {
				return err
			}
			return runClusters(cmd, cfg, args[0], flags)
		},
	}

	f := cmd.Flags()
	f.String("clusters", "", "YAML cluster table; built-in table if empty")
	f.StringVarP(&flags.out, "out", "o", "", "write the cluster JSON here instead of stdout")
	f.StringVar(&flags.seed, "seed", "", "only keywords found for this seed")
	f.StringVar(&flags.kind, "type", "", "only keywords of this type: related or paa")
	f.StringVar(&flags.source, "source", "", "only keywords from this source")
	f.IntVar(&flags.minVolume, "min-volume", 0, "only keywords with at least this volume")

	return cmd
}

func runClusters(cmd *cobra.Command, cfg config.Config, path string, flags clustersFlags) error {
	logger, closeLog, err := newLogger(cfg.LogLevel, cfg.LogFile, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	filter := storage.Filter{
		SeedKeyword: flags.seed,
		Type:        keyword.Type(flags.kind),
		Source:      flags.source,
		MinVolume:   flags.minVolume,
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return fmt.Errorf("unknown keyword type %q", flags.kind)
	}

	records, err := readRecords(cmd, path, filter)
	if err != nil {
		return err
	}
	logger.Info("loaded keyword records", "count", len(records), "file", path)

	table, err := cluster.LoadTable(cfg.ClustersFile)
	if err != nil {
		return err
	}
	clusters := cluster.New(table).Classify(records)

	if flags.out == "" {
		return storage.WriteClusters(cmd.OutOrStdout(), clusters)
	}
	if err := storage.WriteClustersFile(flags.out, clusters); err != nil {
		return err
	}

	summary := report.GenerateSummary(records)
	summary.Clusters = report.SummarizeClusters(clusters)
	if err := report.WriteText(cmd.OutOrStdout(), summary); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nClusters saved to: %s\n", flags.out)
	return nil
}

func readRecords(cmd *cobra.Command, path string, filter storage.Filter) ([]keyword.Record, error) {
	openFile := csvbackend.Open
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ndjson", ".jsonl", ".json":
		openFile = jsonbackend.Open
	}

	backend, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	return backend.Query(cmd.Context(), filter)
}
