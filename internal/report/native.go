package report

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/climatenet/climatebot/internal/classify"
	"github.com/climatenet/climatebot/internal/models"
)

// NativeRenderer draws the comparison table straight to a PNG without an
// external rasterizer. It needs a TTF font file on disk; a missing font is
// an asset error, reported before any drawing happens.
type NativeRenderer struct {
	fontPath string
	width    int
	issues   map[string]bool

	fontOnce sync.Once
	fontErr  error
	regular  font.Face
	bold     font.Face
}

func NewNativeRenderer(fontPath string, width int, issueDevices []string) *NativeRenderer {
	issues := make(map[string]bool, len(issueDevices))
	for _, name := range issueDevices {
		issues[name] = true
	}
	if width <= 0 {
		width = DefaultWidth
	}
	return &NativeRenderer{
		fontPath: fontPath,
		width:    width,
		issues:   issues,
	}
}

func (r *NativeRenderer) loadFonts() {
	r.fontOnce.Do(func() {
		data, err := os.ReadFile(r.fontPath)
		if err != nil {
			r.fontErr = fmt.Errorf("%w: %s: %v", ErrAssetMissing, r.fontPath, err)
			return
		}
		parsed, err := opentype.Parse(data)
		if err != nil {
			r.fontErr = fmt.Errorf("%w: parse %s: %v", ErrAssetMissing, r.fontPath, err)
			return
		}
		r.regular, err = opentype.NewFace(parsed, &opentype.FaceOptions{
			Size: 13, DPI: 72, Hinting: font.HintingFull,
		})
		if err != nil {
			r.fontErr = fmt.Errorf("%w: regular face: %v", ErrAssetMissing, err)
			return
		}
		r.bold, err = opentype.NewFace(parsed, &opentype.FaceOptions{
			Size: 16, DPI: 72, Hinting: font.HintingFull,
		})
		if err != nil {
			r.fontErr = fmt.Errorf("%w: bold face: %v", ErrAssetMissing, err)
		}
	})
}

var severityColors = map[classify.Severity]color.RGBA{
	classify.SeverityGood:      {0x28, 0xa7, 0x45, 0xff},
	classify.SeverityModerate:  {0xd3, 0x9e, 0x00, 0xff},
	classify.SeverityUnhealthy: {0xfd, 0x7e, 0x14, 0xff},
	classify.SeverityDangerous: {0xdc, 0x35, 0x45, 0xff},
}

func (r *NativeRenderer) Render(devices []models.Device, measurements []models.Measurement) ([]byte, error) {
	view, err := BuildView(devices, measurements, r.issues)
	if err != nil {
		return nil, err
	}

	r.loadFonts()
	if r.fontErr != nil {
		return nil, r.fontErr
	}

	const (
		titleH  = 48
		headerH = 56
		rowH    = 44
		metricW = 180
		padX    = 10
	)

	height := titleH + headerH + rowH*len(view.Rows) + 16
	dst := image.NewRGBA(image.Rect(0, 0, r.width, height))

	white := color.RGBA{0xff, 0xff, 0xff, 0xff}
	title := color.RGBA{0x66, 0x7e, 0xea, 0xff}
	headerBG := color.RGBA{0xf8, 0xf9, 0xfa, 0xff}
	line := color.RGBA{0xe9, 0xec, 0xef, 0xff}
	text := color.RGBA{0x33, 0x33, 0x33, 0xff}
	accent := color.RGBA{0x00, 0x7b, 0xff, 0xff}
	muted := color.RGBA{0x6c, 0x75, 0x7d, 0xff}
	warn := color.RGBA{0x85, 0x64, 0x04, 0xff}

	fillRect(dst, image.Rect(0, 0, r.width, height), white)
	fillRect(dst, image.Rect(0, 0, r.width, titleH), title)
	fillRect(dst, image.Rect(0, titleH, r.width, titleH+headerH), headerBG)

	r.drawText(dst, "Device Comparison", padX, 30, white, r.bold)

	colW := (r.width - metricW) / max(len(view.Columns), 1)
	for i, col := range view.Columns {
		x := metricW + i*colW + padX
		r.drawText(dst, col.Device, x, titleH+24, text, r.bold)
		if col.Warning {
			r.drawText(dst, "⚠ technical issues", x, titleH+44, warn, r.regular)
		}
	}

	for i, row := range view.Rows {
		top := titleH + headerH + i*rowH
		fillRect(dst, image.Rect(0, top, r.width, top+1), line)
		r.drawText(dst, row, padX, top+22, muted, r.regular)

		for j, col := range view.Columns {
			cell := col.Cells[i]
			x := metricW + j*colW + padX
			r.drawText(dst, cell.Value, x, top+20, accent, r.regular)
			if cell.Label != "" {
				labelColor := muted
				if c, ok := severityColors[cell.Class]; ok {
					labelColor = c
				}
				r.drawText(dst, cell.Label, x, top+38, labelColor, r.regular)
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrRenderFailed, err)
	}
	return buf.Bytes(), nil
}

func (r *NativeRenderer) drawText(img *image.RGBA, s string, x, y int, col color.Color, face font.Face) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(s)
}

func fillRect(img *image.RGBA, rect image.Rectangle, col color.RGBA) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}
