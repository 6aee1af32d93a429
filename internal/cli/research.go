package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/FranksOps/furrow/internal/bypass"
	"github.com/FranksOps/furrow/internal/cluster"
	"github.com/FranksOps/furrow/internal/config"
	"github.com/FranksOps/furrow/internal/fingerprint"
	"github.com/FranksOps/furrow/internal/metrics"
	"github.com/FranksOps/furrow/internal/pipeline"
	"github.com/FranksOps/furrow/internal/provider"
	"github.com/FranksOps/furrow/internal/report"
	"github.com/FranksOps/furrow/internal/seeds"
	"github.com/FranksOps/furrow/internal/storage"
	"github.com/FranksOps/furrow/internal/storage/csvbackend"
	"github.com/FranksOps/furrow/internal/storage/jsonbackend"
	"github.com/FranksOps/furrow/pkg/httpclient"
	"github.com/FranksOps/furrow/pkg/proxy"
	"github.com/FranksOps/furrow/pkg/ratelimit"
	"github.com/FranksOps/furrow/pkg/useragent"
)

// timestampLayout names output files, e.g. keyword_research_20260102_150405.csv.
const timestampLayout = "20060102_150405"

var researchKeys = map[string]string{
	"provider":     "provider",
	"fallback":     "fallback",
	"country":      "keywords_everywhere.country",
	"seeds":        "seeds_file",
	"clusters":     "clusters_file",
	"output-dir":   "output_dir",
	"format":       "format",
	"html":         "html_report",
	"throttle":     "throttle",
	"concurrency":  "concurrency",
	"metrics-file": "metrics_file",
	"timeout":      "http.timeout",
	"max-retries":  "http.max_retries",
	"fingerprint":  "http.fingerprint",
	"proxy-file":   "http.proxy_file",
}

func newResearchCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "research",
		Short: "Fetch keyword data for every seed, cluster it and write the results.",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(opts.v, cmd.Flags(), researchKeys); err != nil {
				return err
			}
			return bindFlags(opts.v, cmd.Root().PersistentFlags(), persistentKeys)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.v, opts.configFile)
			if err != nil {
				return err
			}
			return runResearch(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.String("provider", provider.NameKeywordsEverywhere, "provider: keywords_everywhere, serpapi or demo")
	f.String("fallback", "", "provider to ask when the primary returns nothing")
	f.String("country", "us", "country code for Keywords Everywhere")
	f.String("seeds", "seed_keywords.txt", "seed keyword file, one per line; built-in list if missing")
	f.String("clusters", "", "YAML cluster table; built-in table if empty")
	f.String("output-dir", ".", "directory for result files")
	f.String("format", config.FormatCSV, "record format: csv or json")
	f.Bool("html", false, "also write an HTML report")
	f.Duration("throttle", pipeline.DefaultThrottle, "pause between seeds")
	f.Int("concurrency", 1, "seeds processed in parallel")
	f.String("metrics-file", "", "write Prometheus metrics to this textfile at the end of the run")
	f.Duration("timeout", httpclient.DefaultTimeout, "per-request timeout")
	f.Int("max-retries", httpclient.DefaultMaxRetries, "attempts per request")
	f.String("fingerprint", string(fingerprint.ProfileGo), "TLS fingerprint: go, chrome, firefox, safari or random")
	f.String("proxy-file", "", "file of proxy URLs to rotate through")

	return cmd
}

func runResearch(ctx context.Context, cfg config.Config, stdout, stderr io.Writer) error {
	logger, closeLog, err := newLogger(cfg.LogLevel, cfg.LogFile, stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	rec := metrics.New()

	newClient, err := clientFactory(cfg, logger, rec)
	if err != nil {
		return err
	}
	prov, err := provider.NewWithFallback(cfg.Provider, cfg.Fallback, provider.Options{
		KeywordsEverywhere: provider.KeywordsEverywhereConfig{
			APIKey:     cfg.KeywordsEverywhere.APIKey,
			BaseURL:    cfg.KeywordsEverywhere.BaseURL,
			Country:    cfg.KeywordsEverywhere.Country,
			DataSource: cfg.KeywordsEverywhere.DataSource,
		},
		SerpAPI: provider.SerpAPIConfig{
			APIKey:  cfg.SerpAPI.APIKey,
			BaseURL: cfg.SerpAPI.BaseURL,
			Engine:  cfg.SerpAPI.Engine,
			Results: cfg.SerpAPI.Num,
		},
		Logger:  logger,
		Counter: rec,
	}, newClient)
	if err != nil {
		return err
	}

	table, err := cluster.LoadTable(cfg.ClustersFile)
	if err != nil {
		return err
	}

	seedList, fromFile, err := seeds.Load(cfg.SeedsFile)
	if err != nil {
		return err
	}
	if fromFile {
		logger.Info("loaded seed keywords", "count", len(seedList), "file", cfg.SeedsFile)
	} else {
		logger.Info("using default seed keywords", "count", len(seedList))
	}

	p := pipeline.Pipeline{
		Provider:    prov,
		Classifier:  cluster.New(table),
		Throttle:    ratelimit.NewThrottle(cfg.Throttle, 0),
		Logger:      logger,
		Concurrency: cfg.Concurrency,
		Metrics:     rec,
	}
	res, runErr := p.Run(ctx, seedList)

	// Whatever was collected is written, even after an interrupt.
	paths, err := writeOutputs(cfg, res, logger)
	if err != nil {
		return errors.Join(runErr, err)
	}

	if err := report.WriteText(stdout, report.FromResult(res)); err != nil {
		return err
	}
	fmt.Fprintln(stdout)
	for _, path := range paths {
		fmt.Fprintf(stdout, "Results saved to: %s\n", path)
	}

	if cfg.MetricsFile != "" {
		if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("failed to write metrics", "file", cfg.MetricsFile, "err", err)
		}
	}
	return runErr
}

// clientFactory shares one transport, user agent pool and proxy pool across
// every provider client of a run.
func clientFactory(cfg config.Config, logger *slog.Logger, obs httpclient.Observer) (provider.ClientFactory, error) {
	profile, err := fingerprint.ParseProfile(cfg.HTTP.Fingerprint)
	if err != nil {
		return nil, err
	}

	var proxies *proxy.Pool
	if cfg.HTTP.ProxyFile != "" {
		proxies = proxy.NewPool(proxy.Config{})
		if err := proxies.LoadFile(cfg.HTTP.ProxyFile); err != nil {
			return nil, err
		}
		logger.Info("loaded proxies", "count", proxies.Len())
	}

	transport, err := fingerprint.Transport(profile, proxy.Func)
	if err != nil {
		return nil, err
	}
	agents := useragent.NewPool(cfg.HTTP.UserAgents)

	return func(baseURL string, header http.Header) (provider.Getter, error) {
		c, err := httpclient.New(httpclient.Config{
			BaseURL:           baseURL,
			Timeout:           cfg.HTTP.Timeout,
			Transport:         transport,
			Header:            header,
			UserAgents:        agents,
			Proxies:           proxies,
			MaxRetries:        cfg.HTTP.MaxRetries,
			MaxRateLimitWaits: cfg.HTTP.MaxRateLimitWaits,
			MaxRetryAfter:     cfg.HTTP.MaxRetryAfter,
			DetectBlock:       bypass.Func,
			Logger:            logger,
			Observer:          obs,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	}, nil
}

// writeOutputs stores records and clusters under cfg.OutputDir and returns
// the paths written.
func writeOutputs(cfg config.Config, res pipeline.Result, logger *slog.Logger) ([]string, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	ts := res.StartedAt.Format(timestampLayout)
	if res.StartedAt.IsZero() {
		ts = time.Now().Format(timestampLayout)
	}

	if len(res.Records) == 0 {
		logger.Warn("no keyword data collected")
	}

	recordsPath := filepath.Join(cfg.OutputDir, "keyword_research_"+ts+recordsExt(cfg.Format))
	backend, err := openBackend(cfg.Format, recordsPath)
	if err != nil {
		return nil, err
	}
	// A fresh background context so an interrupted run still saves.
	saveErr := backend.Save(context.Background(), res.Records)
	if err := errors.Join(saveErr, backend.Close()); err != nil {
		return nil, err
	}
	logger.Info("saved keyword records", "count", len(res.Records), "file", recordsPath)
	paths := []string{recordsPath}

	clustersPath := filepath.Join(cfg.OutputDir, "keyword_clusters_"+ts+".json")
	if err := storage.WriteClustersFile(clustersPath, res.Clusters); err != nil {
		return paths, err
	}
	paths = append(paths, clustersPath)

	if cfg.HTMLReport {
		htmlPath := filepath.Join(cfg.OutputDir, "keyword_report_"+ts+".html")
		if err := writeHTML(htmlPath, report.FromResult(res)); err != nil {
			return paths, err
		}
		paths = append(paths, htmlPath)
	}
	return paths, nil
}

func writeHTML(path string, s report.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}
	if err := report.WriteHTML(f, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func recordsExt(format string) string {
	if format == config.FormatJSON {
		return ".ndjson"
	}
	return ".csv"
}

// openBackend opens a record file in the given format.
func openBackend(format, path string) (storage.Backend, error) {
	switch format {
	case config.FormatJSON:
		return jsonbackend.New(path)
	case config.FormatCSV:
		return csvbackend.New(path)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}
