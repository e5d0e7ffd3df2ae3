package preview

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/matzehuels/azdiagram/pkg/errors"
)

// Rasterizer is the external tool that turns SVG previews into PNG or PDF.
const Rasterizer = "rsvg-convert"

// Rasterize converts an SVG preview to "png" (at scale) or "pdf" with
// rsvg-convert. A missing tool yields an UNSUPPORTED error naming the
// package to install.
func Rasterize(ctx context.Context, svg []byte, format string, scale float64) ([]byte, error) {
	args := []string{"-f", format}
	switch format {
	case "png":
		if scale > 0 {
			args = append(args, "-z", strconv.FormatFloat(scale, 'f', 2, 64))
		}
	case "pdf":
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "cannot rasterize to %q", format)
	}

	path, err := exec.LookPath(Rasterizer)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeUnsupported, err,
			"%s previews need %s (librsvg2-bin on Debian/Ubuntu, librsvg on Homebrew)", format, Rasterizer)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = bytes.NewReader(svg)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w: %s", Rasterizer, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}
