// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ilps28qsw

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
)

// FIFOMode selects the FIFO operating mode. The values pack the F_MODE
// field in bits 0-1 and the TRIG_MODES flag in bit 2 of FIFO_CTRL.
type FIFOMode uint8

const (
	// FIFOBypass disables the FIFO.
	FIFOBypass FIFOMode = 0
	// FIFOStopWhenFull collects samples until the FIFO is full, then stops.
	FIFOStopWhenFull FIFOMode = 1
	// FIFOStream keeps collecting, discarding the oldest sample when full.
	FIFOStream FIFOMode = 2
	// FIFOBypassToFIFO stays in bypass until the interrupt trigger fires,
	// then behaves as FIFOStopWhenFull.
	FIFOBypassToFIFO FIFOMode = 5
	// FIFOBypassToStream stays in bypass until the interrupt trigger fires,
	// then behaves as FIFOStream.
	FIFOBypassToStream FIFOMode = 6
	// FIFOStreamToFIFO streams until the interrupt trigger fires, then
	// behaves as FIFOStopWhenFull.
	FIFOStreamToFIFO FIFOMode = 7
)

// FIFOConfig holds the FIFO operating mode and watermark.
type FIFOConfig struct {
	Mode FIFOMode
	// Watermark is the sample count, 0 to 127, at which the watermark flag
	// raises. A non zero watermark also stops collection at the watermark
	// instead of at the 128 sample capacity.
	Watermark uint8
}

// FIFOSample is one decoded FIFO slot.
type FIFOSample struct {
	// Raw is the sign extended, left justified 24 bit code.
	Raw int32
	// Pressure is set when the slot carries the pressure channel.
	Pressure physic.Pressure
	// QVAR and RawQVAR are set instead of Pressure when the device is in
	// interleaved mode and the slot carries the AH/QVAR channel.
	QVAR    physic.ElectricPotential
	RawQVAR int32
	IsQVAR  bool
}

// SetFIFOConfig programs the FIFO operating mode and watermark.
func (d *Dev) SetFIFOConfig(cfg FIFOConfig) error {
	if cfg.Watermark > 127 {
		return fmt.Errorf("ilps28qsw: watermark %d out of range", cfg.Watermark)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var reg [2]byte
	if err := d.readRegs(regFifoCtrl, reg[:]); err != nil {
		return err
	}
	reg[0] &^= fifoCtrlModeMask | fifoCtrlTrigMode | fifoCtrlStopOnWTM
	reg[0] |= byte(cfg.Mode) & fifoCtrlModeMask
	if cfg.Mode&0x04 != 0 {
		reg[0] |= fifoCtrlTrigMode
	}
	if cfg.Watermark != 0 {
		reg[0] |= fifoCtrlStopOnWTM
	}
	reg[1] = cfg.Watermark
	return d.writeRegs(regFifoCtrl, reg[:])
}

// FIFOConfig returns the FIFO operating mode and watermark programmed in the
// device.
func (d *Dev) FIFOConfig() (FIFOConfig, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var reg [2]byte
	if err := d.readRegs(regFifoCtrl, reg[:]); err != nil {
		return FIFOConfig{}, err
	}
	cfg := FIFOConfig{Watermark: reg[1] & fifoWtmMask}
	cfg.Mode = FIFOMode(reg[0] & fifoCtrlModeMask)
	if reg[0]&fifoCtrlTrigMode != 0 {
		cfg.Mode |= 0x04
	}
	return cfg, nil
}

// FIFOLevel returns the number of samples currently stored in the FIFO.
func (d *Dev) FIFOLevel() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b [1]byte
	if err := d.readRegs(regFifoStatus1, b[:]); err != nil {
		return 0, err
	}
	return int(b[0]), nil
}

// ReadFIFO pops and decodes n samples from the FIFO. Each slot is
// interpreted with the mode last programmed through SetMode or read through
// Mode.
func (d *Dev) ReadFIFO(n int) ([]FIFOSample, error) {
	if n < 0 || n > 128 {
		return nil, fmt.Errorf("ilps28qsw: sample count %d out of range", n)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	samples := make([]FIFOSample, 0, n)
	var buf [3]byte
	for i := 0; i < n; i++ {
		if err := d.readRegs(regFifoDataOutPressXL, buf[:]); err != nil {
			return samples, err
		}
		s := FIFOSample{Raw: int32(uint32(buf[2])<<24 | uint32(buf[1])<<16 | uint32(buf[0])<<8)}
		if d.mode.Interleaved && buf[0]&1 != 0 {
			s.IsQVAR = true
			s.RawQVAR = s.Raw >> 8
			s.QVAR = qvarFromLSB(s.RawQVAR)
		} else {
			s.Pressure = pressureFromRaw(s.Raw, d.mode.FullScale)
		}
		samples = append(samples, s)
	}
	return samples, nil
}
