package cli

import (
	"math"

	"github.com/spf13/cobra"

	"github.com/cooljackie/tilestream"
)

// Version is set at build time via ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "tilestream",
	Short: "Visibility-driven tile loading for equirectangular panoramas",
	Long: `tilestream computes which tiles of a tiled equirectangular panorama are
visible from a given view and fetches them nearest-to-center first under a
concurrency cap.`,
	SilenceUsage: true,
}

// viewFlags are shared by every command that needs a camera.
type viewFlags struct {
	panorama string
	yaw      float64
	pitch    float64
	fov      float64
	width    float64
	height   float64
}

func (v *viewFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&v.panorama, "panorama", "p", "", "path to the panorama YAML description")
	cmd.Flags().Float64Var(&v.yaw, "yaw", 0, "view longitude in degrees")
	cmd.Flags().Float64Var(&v.pitch, "pitch", 0, "view latitude in degrees")
	cmd.Flags().Float64Var(&v.fov, "fov", 65, "vertical field of view in degrees")
	cmd.Flags().Float64Var(&v.width, "width", 1280, "viewport width in pixels")
	cmd.Flags().Float64Var(&v.height, "height", 720, "viewport height in pixels")
	_ = cmd.MarkFlagRequired("panorama")
}

func (v *viewFlags) camera() tilestream.Camera {
	return tilestream.Camera{
		Yaw:      v.yaw * math.Pi / 180,
		Pitch:    v.pitch * math.Pi / 180,
		FOV:      v.fov * math.Pi / 180,
		Viewport: tilestream.Viewport{Width: v.width, Height: v.height},
	}
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("tilestream version {{.Version}}\n")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
