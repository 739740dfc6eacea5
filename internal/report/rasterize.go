package report

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
)

// ExecRasterizer shells out to a wkhtmltoimage-compatible binary. The
// intermediate markup and image files carry globally-unique names and are
// removed on every exit path, including rasterization failures.
type ExecRasterizer struct {
	bin string
	dir string
}

func NewExecRasterizer(bin string) *ExecRasterizer {
	if bin == "" {
		bin = "wkhtmltoimage"
	}
	return &ExecRasterizer{bin: bin, dir: os.TempDir()}
}

func (r *ExecRasterizer) Rasterize(ctx context.Context, html []byte, width int) ([]byte, error) {
	id := uuid.NewString()
	htmlPath := filepath.Join(r.dir, "comparison_"+id+".html")
	pngPath := filepath.Join(r.dir, "comparison_"+id+".png")
	defer os.Remove(htmlPath)
	defer os.Remove(pngPath)

	if err := os.WriteFile(htmlPath, html, 0o600); err != nil {
		return nil, fmt.Errorf("%w: write markup: %v", ErrRenderFailed, err)
	}

	cmd := exec.CommandContext(ctx, r.bin, "--format", "png", "--width", strconv.Itoa(width), htmlPath, pngPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v: %s", ErrRenderFailed, r.bin, err, out)
	}

	data, err := os.ReadFile(pngPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read output: %v", ErrRenderFailed, err)
	}
	return data, nil
}
