package cli

import (
	"context"
	"fmt"
	"image/png"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cooljackie/tilestream"
)

var (
	fetchFlags       viewFlags
	fetchConcurrency int
	fetchOut         string
	fetchScale       float64
	fetchTimeout     time.Duration
	fetchAttempts    int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the tiles visible from a view into an atlas image",
	Long: `Runs one refresh for the given view: visible tiles are fetched nearest to
the view center first, composited into an in-memory atlas and written as PNG.
Failed tiles are drawn as placeholders.`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	fetchFlags.register(fetchCmd)
	fetchCmd.Flags().IntVarP(&fetchConcurrency, "concurrency", "c", tilestream.DefaultConcurrency, "maximum concurrent tile fetches")
	fetchCmd.Flags().StringVarP(&fetchOut, "out", "o", "atlas.png", "output PNG path")
	fetchCmd.Flags().Float64Var(&fetchScale, "scale", 0.25, "atlas scale relative to full resolution (0,1]")
	fetchCmd.Flags().DurationVar(&fetchTimeout, "timeout", 2*time.Minute, "overall timeout")
	fetchCmd.Flags().IntVar(&fetchAttempts, "attempts", 3, "fetch attempts per tile")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := tilestream.LoadPanoramaFile(fetchFlags.panorama)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	atlas, err := tilestream.NewAtlasSink(cfg, fetchScale)
	if err != nil {
		return err
	}
	fetcher := tilestream.NewHTTPFetcher(&http.Client{Timeout: 30 * time.Second},
		tilestream.RetryPolicy{Attempts: fetchAttempts})

	metrics := &tilestream.AtomicMetrics{}
	loader, err := tilestream.NewLoader(fetcher, atlas, tilestream.Options{
		Concurrency: fetchConcurrency,
		Ctx:         ctx,
		Metrics:     metrics,
		OnFetchError: func(err error) {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		},
	})
	if err != nil {
		return err
	}
	defer loader.Close()

	if err := loader.LoadTexture(ctx, cfg); err != nil {
		return err
	}
	if err := loader.RefreshCamera(fetchFlags.camera()); err != nil {
		return err
	}
	if err := loader.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for tiles: %w", err)
	}

	if err := writePNG(fetchOut, atlas); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "fetched %d tiles, %d failed, wrote %s\n",
		metrics.Done(), metrics.Failed(), fetchOut)
	return nil
}

func writePNG(path string, atlas *tilestream.AtlasSink) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := png.Encode(fh, atlas.Image()); err != nil {
		fh.Close()
		return fmt.Errorf("failed to encode atlas: %w", err)
	}
	return fh.Close()
}
