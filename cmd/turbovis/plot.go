package main

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// chartWidth and chartHeight are the fixed plot area fyne lays out for
// every chart in this window; there's no charting widget in the pack to
// reach for, so these are drawn directly with canvas primitives the way
// ui.go builds its own canvas.Image/canvas.Text objects, sized once
// rather than re-flowed on every window resize.
const (
	chartWidth  float32 = 480
	chartHeight float32 = 220
)

// lineChart is a minimal canvas-drawn polyline plot, redrawn in full
// every time setValues is called.
type lineChart struct {
	title *widget.Label
	axis  *canvas.Text
	box   *fyne.Container

	values []float64
	minY   float64
	maxY   float64
}

func newLineChart(title string) *lineChart {
	c := &lineChart{
		title: widget.NewLabel(title),
		axis:  canvas.NewText("", theme.Color(theme.ColorNameForeground)),
		box:   container.NewWithoutLayout(),
	}
	c.box.Resize(fyne.NewSize(chartWidth, chartHeight))
	return c
}

func (c *lineChart) canvasObject() fyne.CanvasObject {
	return container.NewBorder(c.title, c.axis, nil, nil, c.box)
}

// setValues replaces the plotted series and redraws.
func (c *lineChart) setValues(values []float64) {
	c.values = values
	c.minY, c.maxY = 0, 0
	for i, v := range values {
		if i == 0 || v < c.minY {
			c.minY = v
		}
		if i == 0 || v > c.maxY {
			c.maxY = v
		}
	}
	if c.maxY == c.minY {
		c.maxY = c.minY + 1
	}
	c.axis.Text = fmt.Sprintf("min=%.4g max=%.4g n=%d", c.minY, c.maxY, len(values))
	c.redraw()
}

func (c *lineChart) redraw() {
	c.box.Objects = nil
	if len(c.values) >= 2 {
		stride := chartWidth / float32(len(c.values)-1)
		yFor := func(v float64) float32 {
			frac := float32((v - c.minY) / (c.maxY - c.minY))
			return chartHeight - frac*chartHeight
		}
		for i := 1; i < len(c.values); i++ {
			seg := canvas.NewLine(theme.Color(theme.ColorNamePrimary))
			seg.StrokeWidth = 2
			seg.Position1 = fyne.NewPos(float32(i-1)*stride, yFor(c.values[i-1]))
			seg.Position2 = fyne.NewPos(float32(i)*stride, yFor(c.values[i]))
			c.box.Add(seg)
		}
	}
	c.box.Refresh()
}

// barChart renders a small discrete distribution (the drift PDF) as a
// row of bars, one per delta.
type barChart struct {
	title  *widget.Label
	box    *fyne.Container
	labels []string
	values []float64
}

func newBarChart(title string) *barChart {
	c := &barChart{title: widget.NewLabel(title), box: container.NewWithoutLayout()}
	c.box.Resize(fyne.NewSize(chartWidth, chartHeight))
	return c
}

func (c *barChart) canvasObject() fyne.CanvasObject {
	return container.NewBorder(c.title, nil, nil, nil, c.box)
}

func (c *barChart) setValues(labels []string, values []float64) {
	c.labels = labels
	c.values = values
	c.redraw()
}

func (c *barChart) redraw() {
	c.box.Objects = nil
	if len(c.values) == 0 {
		c.box.Refresh()
		return
	}
	max := c.values[0]
	for _, v := range c.values {
		if v > max {
			max = v
		}
	}
	if max == 0 {
		max = 1
	}
	n := len(c.values)
	slot := chartWidth / float32(n)
	barWidth := slot * 0.7
	for i, v := range c.values {
		h := chartHeight * float32(v/max)
		bar := canvas.NewRectangle(theme.Color(theme.ColorNamePrimary))
		bar.Resize(fyne.NewSize(barWidth, h))
		bar.Move(fyne.NewPos(float32(i)*slot+(slot-barWidth)/2, chartHeight-h))
		c.box.Add(bar)
		if i < len(c.labels) {
			lbl := canvas.NewText(c.labels[i], theme.Color(theme.ColorNameForeground))
			lbl.TextSize = 10
			lbl.Move(fyne.NewPos(float32(i)*slot, chartHeight))
			c.box.Add(lbl)
		}
	}
	c.box.Refresh()
}
