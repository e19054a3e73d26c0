package cli

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePanorama lays out a 16×8 panorama of solid PNG tiles in dir and
// returns the path of its YAML description.
func writePanorama(t *testing.T, dir string) string {
	t.Helper()

	for col := 0; col < 16; col++ {
		for row := 0; row < 8; row++ {
			img := image.NewRGBA(image.Rect(0, 0, 2, 2))
			for i := range img.Pix {
				img.Pix[i] = 0xff
			}
			img.SetRGBA(0, 0, color.RGBA{R: uint8(col * 16), G: uint8(row * 32), A: 255})

			var buf bytes.Buffer
			require.NoError(t, png.Encode(&buf, img))
			name := filepath.Join(dir, fmt.Sprintf("%d_%d.png", col, row))
			require.NoError(t, os.WriteFile(name, buf.Bytes(), 0o644))
		}
	}

	path := filepath.Join(dir, "pano.yaml")
	content := fmt.Sprintf("width: 1600\ncols: 16\nrows: 8\ntile_url: '%s/{col}_{row}.png'\n", dir)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// resetViewFlags points v at pano with a 90° square view looking at
// longitude yaw.
func resetViewFlags(v *viewFlags, pano string, yaw float64) {
	*v = viewFlags{panorama: pano, yaw: yaw, fov: 90, width: 1000, height: 1000}
}

func captureOutput(t *testing.T, cmd interface {
	SetOut(io.Writer)
	SetErr(io.Writer)
}) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	t.Cleanup(func() {
		cmd.SetOut(nil)
		cmd.SetErr(nil)
	})
	return &out, &errOut
}

func TestVisibleCommand(t *testing.T) {
	dir := t.TempDir()
	resetViewFlags(&visibleFlags, writePanorama(t, dir), 0)
	out, _ := captureOutput(t, visibleCmd)

	err := runVisible(visibleCmd, []string{})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Greater(t, len(lines), 3)
	assert.True(t, strings.HasPrefix(lines[0], "COL"))
	assert.True(t, strings.HasPrefix(lines[1], "---"))

	t.Run("nearest tile first", func(t *testing.T) {
		assert.Contains(t, lines[2], "0.0000")
		assert.Contains(t, lines[2], "1.5708")
		assert.Contains(t, lines[2], dir)
	})

	t.Run("summary line", func(t *testing.T) {
		assert.Regexp(t, `^\d+ of 128 tiles$`, lines[len(lines)-1])
	})
}

func TestVisibleCommand_MissingPanorama(t *testing.T) {
	resetViewFlags(&visibleFlags, filepath.Join(t.TempDir(), "none.yaml"), 0)
	captureOutput(t, visibleCmd)

	err := runVisible(visibleCmd, []string{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFetchCommand(t *testing.T) {
	dir := t.TempDir()
	resetViewFlags(&fetchFlags, writePanorama(t, dir), 30)
	atlasPath := filepath.Join(dir, "atlas.png")
	fetchConcurrency = 3
	fetchOut = atlasPath
	fetchScale = 0.25
	fetchTimeout = 30 * time.Second
	fetchAttempts = 1
	out, stderr := captureOutput(t, fetchCmd)

	err := runFetch(fetchCmd, []string{})
	require.NoError(t, err)
	assert.Empty(t, stderr.String())
	assert.Contains(t, out.String(), ", 0 failed, wrote "+atlasPath)

	fh, err := os.Open(atlasPath)
	require.NoError(t, err)
	defer fh.Close()
	cfg, err := png.DecodeConfig(fh)
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestViewFlags_Camera(t *testing.T) {
	v := viewFlags{yaw: 180, pitch: -90, fov: 60, width: 640, height: 480}
	cam := v.camera()
	assert.InDelta(t, math.Pi, cam.Yaw, 1e-12)
	assert.InDelta(t, -math.Pi/2, cam.Pitch, 1e-12)
	assert.InDelta(t, math.Pi/3, cam.FOV, 1e-12)
	assert.Equal(t, 640.0, cam.Viewport.Width)
	assert.Equal(t, 480.0, cam.Viewport.Height)
}
