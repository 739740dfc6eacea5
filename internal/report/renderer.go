package report

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/climatenet/climatebot/internal/models"
)

//go:embed templates/*
var templateFS embed.FS

// DefaultWidth is the pixel width of the rasterized report.
const DefaultWidth = 800

// Rasterizer turns self-contained HTML markup into a PNG of the given
// width. The call blocks until the image is ready.
type Rasterizer interface {
	Rasterize(ctx context.Context, html []byte, width int) ([]byte, error)
}

// Renderer assembles the comparison markup from an embedded template and
// hands it to a rasterizer. The stylesheet is inlined so the artifact
// renders without any external asset.
type Renderer struct {
	tmpl       *template.Template
	css        template.CSS
	rasterizer Rasterizer
	width      int
	issues     map[string]bool
	timeout    time.Duration
}

type templateData struct {
	CSS template.CSS
	View
}

// NewRenderer loads the embedded template and stylesheet. A missing or
// unparsable template fails here, not at render time.
func NewRenderer(rasterizer Rasterizer, width int, issueDevices []string) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/comparison.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateMissing, err)
	}

	css, err := templateFS.ReadFile("templates/comparison.css")
	if err != nil {
		return nil, fmt.Errorf("%w: comparison.css: %v", ErrAssetMissing, err)
	}

	issues := make(map[string]bool, len(issueDevices))
	for _, name := range issueDevices {
		issues[name] = true
	}

	if width <= 0 {
		width = DefaultWidth
	}

	return &Renderer{
		tmpl:       tmpl,
		css:        template.CSS(css),
		rasterizer: rasterizer,
		width:      width,
		issues:     issues,
		timeout:    60 * time.Second,
	}, nil
}

// Render builds the comparison image for the given devices and
// measurements, in order.
func (r *Renderer) Render(devices []models.Device, measurements []models.Measurement) ([]byte, error) {
	view, err := BuildView(devices, measurements, r.issues)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, templateData{CSS: r.css, View: view}); err != nil {
		return nil, fmt.Errorf("%w: execute: %v", ErrTemplateMissing, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	png, err := r.rasterizer.Rasterize(ctx, buf.Bytes(), r.width)
	if err != nil {
		return nil, err
	}
	return png, nil
}

// Markup renders just the HTML, mainly for tests.
func (r *Renderer) Markup(devices []models.Device, measurements []models.Measurement) ([]byte, error) {
	view, err := BuildView(devices, measurements, r.issues)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, templateData{CSS: r.css, View: view}); err != nil {
		return nil, fmt.Errorf("%w: execute: %v", ErrTemplateMissing, err)
	}
	return buf.Bytes(), nil
}
