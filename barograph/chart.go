// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package barograph

import (
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"periph.io/x/conn/v3/physic"
)

// Sample is one timestamped pressure reading.
type Sample struct {
	T time.Time
	P physic.Pressure
}

// ChartOpts represents the options available for a chart.
type ChartOpts struct {
	// W and H are the image dimensions in pixels.
	W int
	H int
	// TTF optionally holds a TrueType font for the labels. When nil the
	// basicfont 7x13 face is used.
	TTF []byte
	// Size is the font size in points when TTF is set.
	Size float64

	_ struct{}
}

// DefaultChartOpts renders a small chart suitable for e-paper displays.
var DefaultChartOpts = ChartOpts{W: 640, H: 240}

// Chart draws pressure history as a line chart image.
type Chart struct {
	w    int
	h    int
	face font.Face
}

// NewChart returns a Chart renderer.
func NewChart(opts *ChartOpts) (*Chart, error) {
	if opts.W <= 0 || opts.H <= 0 {
		return nil, fmt.Errorf("barograph: invalid chart size %dx%d", opts.W, opts.H)
	}
	c := &Chart{w: opts.W, h: opts.H, face: basicfont.Face7x13}
	if opts.TTF != nil {
		f, err := truetype.Parse(opts.TTF)
		if err != nil {
			return nil, fmt.Errorf("barograph: parsing font: %w", err)
		}
		size := opts.Size
		if size == 0 {
			size = 13
		}
		c.face = truetype.NewFace(f, &truetype.Options{Size: size})
	}
	return c, nil
}

// Render draws the samples as a line chart, oldest on the left.
func (c *Chart) Render(samples []Sample) (image.Image, error) {
	dc, err := c.render(samples)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// WritePNG draws the samples as Render does and writes the result as PNG.
func (c *Chart) WritePNG(w io.Writer, samples []Sample) error {
	dc, err := c.render(samples)
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

func (c *Chart) render(samples []Sample) (*gg.Context, error) {
	if len(samples) == 0 {
		return nil, errors.New("barograph: no samples")
	}
	min, max := samples[0].P, samples[0].P
	for _, s := range samples[1:] {
		if s.P < min {
			min = s.P
		}
		if s.P > max {
			max = s.P
		}
	}
	if min == max {
		// Flat trace. Pad the scale so it sits mid chart.
		min -= 50 * physic.Pascal
		max += 50 * physic.Pascal
	}

	dc := gg.NewContext(c.w, c.h)
	dc.SetFontFace(c.face)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	const top = 8.0
	const right = 8.0
	const left = 64.0
	const bottom = 20.0
	plotW := float64(c.w) - left - right
	plotH := float64(c.h) - top - bottom

	dc.SetRGB(0.7, 0.7, 0.7)
	dc.SetLineWidth(1)
	dc.DrawRectangle(left, top, plotW, plotH)
	dc.Stroke()

	n := len(samples)
	dc.SetRGB(0.1, 0.2, 0.8)
	dc.SetLineWidth(2)
	span := float64(max - min)
	for i, s := range samples {
		fx := 0.5
		if n > 1 {
			fx = float64(i) / float64(n-1)
		}
		x := left + fx*plotW
		y := top + plotH - float64(s.P-min)/span*plotH
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	if n == 1 {
		dc.ClearPath()
		y := top + plotH - float64(samples[0].P-min)/span*plotH
		dc.DrawCircle(left+0.5*plotW, y, 2)
		dc.Fill()
	} else {
		dc.Stroke()
	}

	dc.SetRGB(0, 0, 0)
	dc.DrawString(max.String(), 4, top+10)
	dc.DrawString(min.String(), 4, top+plotH)
	if !samples[0].T.IsZero() {
		dc.DrawString(samples[0].T.Format("15:04"), left, float64(c.h)-6)
		last := samples[n-1].T.Format("15:04")
		tw, _ := dc.MeasureString(last)
		dc.DrawString(last, float64(c.w)-right-tw, float64(c.h)-6)
	}
	return dc, nil
}
