package renderer

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/linuxmatters/blockfeed/internal/config"
	"github.com/linuxmatters/blockfeed/internal/output"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

// Plot area margins in pixels
const (
	marginLeft   = 64
	marginRight  = 24
	marginTop    = 48
	marginBottom = 40

	titleSize = 20.0
	labelSize = 13.0
)

var (
	backgroundColor = color.RGBA{R: 0x1A, G: 0x1D, B: 0x21, A: 255}
	axisColor       = color.RGBA{R: 0x5C, G: 0x63, B: 0x70, A: 255}
	lowWaterColor   = color.RGBA{R: 0xFF, G: 0x9F, B: 0x0A, A: 255}
	targetColor     = color.RGBA{R: 0x30, G: 0xD1, B: 0x58, A: 255}
	labelColor      = color.RGBA{R: 0xC8, G: 0xCC, B: 0xD2, A: 255}
)

// Series is the data a chart is drawn from; *output.Timeline satisfies it.
type Series interface {
	Points() []output.Point
	Thresholds() (lowWater, target int)
	MaxOccupancy() int
}

// ChartOptions controls the occupancy chart. Zero sizes fall back to
// config.ChartWidth and config.ChartHeight.
type ChartOptions struct {
	Title      string
	Width      int
	Height     int
	SampleRate int
}

// SaveChart renders s as a PNG file at path.
func SaveChart(path string, s Series, opts ChartOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteChart(f, s, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteChart renders s and encodes it to w as PNG.
func WriteChart(w io.Writer, s Series, opts ChartOptions) error {
	img, err := DrawChart(s, opts)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// DrawChart draws queue occupancy per render call. The trace is decimated to
// one column per pixel, keeping the min and max of each column so short dips
// stay visible. Underruns are marked along the bottom axis.
func DrawChart(s Series, opts ChartOptions) (*image.RGBA, error) {
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = config.ChartWidth
	}
	if height <= 0 {
		height = config.ChartHeight
	}
	if width <= marginLeft+marginRight || height <= marginTop+marginBottom {
		return nil, fmt.Errorf("chart size %dx%d too small", width, height)
	}

	trace, err := hexColor(config.ChartTraceColor)
	if err != nil {
		return nil, err
	}
	underrun, err := hexColor(config.ChartUnderrunColor)
	if err != nil {
		return nil, err
	}

	parsedFont, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	titleFace := truetype.NewFace(parsedFont, &truetype.Options{Size: titleSize, DPI: 72, Hinting: font.HintingFull})
	defer titleFace.Close()
	labelFace := truetype.NewFace(parsedFont, &truetype.Options{Size: labelSize, DPI: 72, Hinting: font.HintingFull})
	defer labelFace.Close()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	plot := image.Rect(marginLeft, marginTop, width-marginRight, height-marginBottom)
	lowWater, target := s.Thresholds()
	top := max(s.MaxOccupancy(), 2*target, 1)

	yFor := func(occupancy int) int {
		return plot.Max.Y - 1 - occupancy*(plot.Dy()-1)/top
	}

	// Axes
	fillRect(img, image.Rect(plot.Min.X-1, plot.Min.Y, plot.Min.X, plot.Max.Y), axisColor)
	fillRect(img, image.Rect(plot.Min.X-1, plot.Max.Y, plot.Max.X, plot.Max.Y+1), axisColor)

	if lowWater > 0 {
		dashedLine(img, plot, yFor(lowWater), lowWaterColor)
		drawLabelRight(img, labelFace, fmt.Sprintf("low %d", lowWater), plot.Min.X-8, yFor(lowWater), lowWaterColor)
	}
	if target > 0 {
		dashedLine(img, plot, yFor(target), targetColor)
		drawLabelRight(img, labelFace, fmt.Sprintf("target %d", target), plot.Min.X-8, yFor(target), targetColor)
	}
	drawLabelRight(img, labelFace, "0", plot.Min.X-8, yFor(0), labelColor)
	drawLabelRight(img, labelFace, fmt.Sprintf("%d", top), plot.Min.X-8, yFor(top), labelColor)

	points := s.Points()
	underruns := 0
	if n := len(points); n > 0 {
		cols := plot.Dx()
		for col := 0; col < cols; col++ {
			lo := col * n / cols
			hi := max((col+1)*n/cols, lo+1)
			if lo >= n {
				break
			}
			hi = min(hi, n)

			minOcc, maxOcc := points[lo].Occupancy, points[lo].Occupancy
			hit := false
			for _, p := range points[lo:hi] {
				minOcc = min(minOcc, p.Occupancy)
				maxOcc = max(maxOcc, p.Occupancy)
				hit = hit || p.Underrun
			}

			x := plot.Min.X + col
			fillRect(img, image.Rect(x, yFor(maxOcc), x+1, yFor(minOcc)+1), trace)
			if hit {
				fillRect(img, image.Rect(x, plot.Max.Y-6, x+1, plot.Max.Y), underrun)
			}
		}
		for _, p := range points {
			if p.Underrun {
				underruns++
			}
		}
	}

	title := opts.Title
	if title == "" {
		title = "Queue occupancy"
	}
	drawText(img, titleFace, title, plot.Min.X, marginTop-16, labelColor)

	footer := fmt.Sprintf("%d renders, %d underruns", len(points), underruns)
	if opts.SampleRate > 0 && len(points) > 0 {
		seconds := float64(points[len(points)-1].Frame) / float64(opts.SampleRate)
		footer = fmt.Sprintf("%.2fs, %s", seconds, footer)
	}
	drawText(img, labelFace, footer, plot.Min.X, height-14, labelColor)

	return img, nil
}

func hexColor(s string) (color.RGBA, error) {
	r, g, b, err := config.ParseHexColor(s)
	if err != nil {
		return color.RGBA{}, err
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(img, r.Intersect(img.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

// dashedLine draws a horizontal 8px on, 6px off line across plot at y
func dashedLine(img *image.RGBA, plot image.Rectangle, y int, c color.RGBA) {
	for x := plot.Min.X; x < plot.Max.X; x += 14 {
		fillRect(img, image.Rect(x, y, min(x+8, plot.Max.X), y+1), c)
	}
}

// measureText returns the width and bounds of text as drawn by face
func measureText(face font.Face, text string) (int, fixed.Rectangle26_6) {
	d := &font.Drawer{Face: face}
	bounds, _ := d.BoundString(text)
	return (bounds.Max.X - bounds.Min.X).Ceil(), bounds
}

func drawText(img *image.RGBA, face font.Face, text string, x, baselineY int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  freetype.Pt(x, baselineY),
	}
	d.DrawString(text)
}

// drawLabelRight draws text right-aligned to x, vertically centred on y
func drawLabelRight(img *image.RGBA, face font.Face, text string, x, y int, c color.RGBA) {
	width, bounds := measureText(face, text)
	height := (bounds.Max.Y - bounds.Min.Y).Ceil()
	drawText(img, face, text, x-width, y+height/2, c)
}
