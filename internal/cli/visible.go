package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cooljackie/tilestream"
)

var visibleFlags viewFlags

var visibleCmd = &cobra.Command{
	Use:   "visible",
	Short: "List the tiles visible from a view",
	Long: `Prints every tile touching a visible grid corner, highest priority first,
with the angle to the view center and the resulting scheduling priority.`,
	Args: cobra.NoArgs,
	RunE: runVisible,
}

func init() {
	visibleFlags.register(visibleCmd)
	rootCmd.AddCommand(visibleCmd)
}

func runVisible(cmd *cobra.Command, args []string) error {
	cfg, err := tilestream.LoadPanoramaFile(visibleFlags.panorama)
	if err != nil {
		return err
	}

	cam := visibleFlags.camera()
	cands := tilestream.ComputeVisibleTiles(cam.Direction(), cam.Viewport, cfg, cam)
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Angle < cands[j].Angle })

	out := cmd.OutOrStdout()
	if len(cands) == 0 {
		fmt.Fprintln(out, "No tiles visible.")
		return nil
	}

	// Calculate column widths
	colWidth := len("COL")
	rowWidth := len("ROW")
	for _, c := range cands {
		colWidth = max(colWidth, len(fmt.Sprint(c.Tile.Col)))
		rowWidth = max(rowWidth, len(fmt.Sprint(c.Tile.Row)))
	}

	fmt.Fprintf(out, "%-*s  %-*s  %-8s  %-8s  %s\n", colWidth, "COL", rowWidth, "ROW", "ANGLE", "PRIORITY", "URL")
	fmt.Fprintf(out, "%s  %s  %s  %s  %s\n", strings.Repeat("-", colWidth), strings.Repeat("-", rowWidth),
		strings.Repeat("-", 8), strings.Repeat("-", 8), "---")
	for _, c := range cands {
		fmt.Fprintf(out, "%-*d  %-*d  %-8.4f  %-8.4f  %s\n",
			colWidth, c.Tile.Col, rowWidth, c.Tile.Row, c.Angle, tilestream.PriorityFromAngle(c.Angle),
			cfg.TileURL(c.Tile.Col, c.Tile.Row))
	}
	fmt.Fprintf(out, "%d of %d tiles\n", len(cands), cfg.Tiles())
	return nil
}
