// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package barograph renders barometric pressure history, either as an ANSI
// color strip on a terminal or as a rendered chart image.
//
// It pairs with any pressure sensor driver; feed it the physic.Pressure
// values as they come in.
package barograph

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
)

// StripOpts represents the options available for a terminal strip.
type StripOpts struct {
	// X is the number of cells, each holding one sample.
	X int
	// Min and Max bound the color scale. Samples outside the range are
	// clamped.
	Min physic.Pressure
	Max physic.Pressure
	// Palette defaults to ansi256.Default.
	Palette *ansi256.Palette

	_ struct{}
}

// DefaultStripOpts covers the usual sea level barometric range.
var DefaultStripOpts = StripOpts{
	X:   80,
	Min: 96 * physic.KiloPascal,
	Max: 106 * physic.KiloPascal,
}

// Strip is a pressure trend strip that draws to the console.
//
// Each pushed sample becomes one colored cell, blue for low pressure and red
// for high. Once the strip is full the oldest cell falls off the left.
type Strip struct {
	w       io.Writer
	palette ansi256.Palette
	min     physic.Pressure
	max     physic.Pressure

	samples []physic.Pressure
	n       int
	buf     bytes.Buffer
}

// NewStrip returns a Strip that displays at the console.
func NewStrip(opts *StripOpts) *Strip {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	l := opts.X
	if l <= 0 {
		l = DefaultStripOpts.X
	}
	return &Strip{
		w:       colorable.NewColorableStdout(),
		palette: *p,
		min:     opts.Min,
		max:     opts.Max,
		samples: make([]physic.Pressure, l),
	}
}

func (s *Strip) String() string {
	return "Barograph"
}

// Halt implements conn.Resource.
//
// It moves to a fresh line and resets the terminal color state.
func (s *Strip) Halt() error {
	_, err := s.w.Write([]byte("\n\033[0m"))
	return err
}

// Push appends one sample and redraws the strip in place.
func (s *Strip) Push(p physic.Pressure) error {
	if s.n < len(s.samples) {
		s.samples[s.n] = p
		s.n++
	} else {
		copy(s.samples, s.samples[1:])
		s.samples[len(s.samples)-1] = p
	}
	return s.refresh()
}

func (s *Strip) refresh() error {
	// This code is designed to minimize the amount of memory allocated per call.
	s.buf.Reset()
	_, _ = s.buf.WriteString("\r\033[0m")
	for i := 0; i < s.n; i++ {
		_, _ = io.WriteString(&s.buf, s.palette.Block(s.cellColor(s.samples[i])))
	}
	_, _ = s.buf.WriteString("\033[0m ")
	_, err := s.buf.WriteTo(s.w)
	return err
}

// cellColor maps a sample onto a blue to red ramp across the configured
// range.
func (s *Strip) cellColor(p physic.Pressure) color.NRGBA {
	if p < s.min {
		p = s.min
	}
	if p > s.max {
		p = s.max
	}
	span := float64(s.max - s.min)
	if span <= 0 {
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
	r := float64(p-s.min) / span
	return color.NRGBA{R: byte(255 * r), B: byte(255 * (1 - r)), A: 255}
}

var _ conn.Resource = &Strip{}
var _ fmt.Stringer = &Strip{}
