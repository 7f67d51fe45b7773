// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ilps28qsw

import "fmt"

// Sources reports the interrupt and data-ready sources in one read.
type Sources struct {
	PressureReady    bool
	TemperatureReady bool
	// OverPressure and UnderPressure report threshold crossings in the
	// respective direction, ThresholdActive reports either.
	OverPressure    bool
	UnderPressure   bool
	ThresholdActive bool
	FIFOFull        bool
	FIFOOverrun     bool
	FIFOWatermark   bool
}

// AllSources returns the state of all interrupt sources.
func (d *Dev) AllSources() (Sources, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var s Sources
	var status, intSrc, fifoStatus2 [1]byte
	if err := d.readRegs(regStatus, status[:]); err != nil {
		return s, err
	}
	if err := d.readRegs(regIntSource, intSrc[:]); err != nil {
		return s, err
	}
	if err := d.readRegs(regFifoStatus2, fifoStatus2[:]); err != nil {
		return s, err
	}
	s.PressureReady = status[0]&statusPDA != 0
	s.TemperatureReady = status[0]&statusTDA != 0
	s.OverPressure = intSrc[0]&intSrcPH != 0
	s.UnderPressure = intSrc[0]&intSrcPL != 0
	s.ThresholdActive = intSrc[0]&intSrcIA != 0
	s.FIFOFull = fifoStatus2[0]&fifoStatus2FullIA != 0
	s.FIFOOverrun = fifoStatus2[0]&fifoStatus2OvrIA != 0
	s.FIFOWatermark = fifoStatus2[0]&fifoStatus2WtmIA != 0
	return s, nil
}

// SetInterruptLatched selects whether the threshold interrupt stays asserted
// until INT_SOURCE is read.
func (d *Dev) SetInterruptLatched(latched bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var bit byte
	if latched {
		bit = intCfgLIR
	}
	return d.updateReg(regInterruptCfg, intCfgLIR, bit)
}

// InterruptLatched returns whether the threshold interrupt is latched.
func (d *Dev) InterruptLatched() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b [1]byte
	if err := d.readRegs(regInterruptCfg, b[:]); err != nil {
		return false, err
	}
	return b[0]&intCfgLIR != 0, nil
}

// ThresholdConfig configures the interrupt on pressure threshold.
type ThresholdConfig struct {
	// Over and Under enable the interrupt when the pressure delta against
	// the reference crosses the threshold in the respective direction.
	Over  bool
	Under bool
	// Threshold is the 15 bit threshold, counted in 1/16 hPa on the 1260hPa
	// full scale and 1/8 hPa on the 4060hPa full scale.
	Threshold uint16
}

// SetThreshold programs the interrupt on pressure threshold.
func (d *Dev) SetThreshold(cfg ThresholdConfig) error {
	if cfg.Threshold > 0x7fff {
		return fmt.Errorf("ilps28qsw: threshold %d out of range", cfg.Threshold)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	var reg [3]byte
	if err := d.readRegs(regInterruptCfg, reg[:]); err != nil {
		return err
	}
	reg[0] &^= intCfgPHE | intCfgPLE
	if cfg.Over {
		reg[0] |= intCfgPHE
	}
	if cfg.Under {
		reg[0] |= intCfgPLE
	}
	reg[1] = byte(cfg.Threshold)
	reg[2] = byte(cfg.Threshold>>8) & thsPHMask
	return d.writeRegs(regInterruptCfg, reg[:])
}

// Threshold returns the interrupt on pressure threshold configuration.
func (d *Dev) Threshold() (ThresholdConfig, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var reg [3]byte
	if err := d.readRegs(regInterruptCfg, reg[:]); err != nil {
		return ThresholdConfig{}, err
	}
	return ThresholdConfig{
		Over:      reg[0]&intCfgPHE != 0,
		Under:     reg[0]&intCfgPLE != 0,
		Threshold: uint16(reg[2]&thsPHMask)<<8 | uint16(reg[1]),
	}, nil
}

// ApplyReference selects how an acquired reference pressure is used.
type ApplyReference uint8

const (
	// RefSubtractAll subtracts the reference from the output registers and
	// the threshold interrupt comparison.
	RefSubtractAll ApplyReference = 0
	// RefInterruptOnly subtracts the reference from the threshold interrupt
	// comparison only.
	RefInterruptOnly ApplyReference = 1
	// RefReset clears the acquired references.
	RefReset ApplyReference = 2
)

// ReferenceConfig configures the reference pressure engine.
type ReferenceConfig struct {
	// Acquire latches the next pressure sample as the autozero reference.
	Acquire bool
	Apply   ApplyReference
}

// SetReferenceMode programs the reference pressure engine.
func (d *Dev) SetReferenceMode(cfg ReferenceConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b [1]byte
	if err := d.readRegs(regInterruptCfg, b[:]); err != nil {
		return err
	}
	b[0] &^= intCfgAutoZero | intCfgAutoRefP | intCfgResetAZ | intCfgResetARP
	if cfg.Acquire {
		b[0] |= intCfgAutoZero
	}
	if cfg.Apply&1 != 0 {
		b[0] |= intCfgAutoRefP
	}
	if cfg.Apply&2 != 0 {
		b[0] |= intCfgResetAZ | intCfgResetARP
	}
	return d.writeRegs(regInterruptCfg, b[:])
}

// ReferenceMode returns the reference pressure engine configuration.
func (d *Dev) ReferenceMode() (ReferenceConfig, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b [1]byte
	if err := d.readRegs(regInterruptCfg, b[:]); err != nil {
		return ReferenceConfig{}, err
	}
	cfg := ReferenceConfig{Acquire: b[0]&intCfgAutoZero != 0}
	switch {
	case b[0]&intCfgResetAZ != 0:
		cfg.Apply = RefReset
	case b[0]&intCfgAutoRefP != 0:
		cfg.Apply = RefInterruptOnly
	default:
		cfg.Apply = RefSubtractAll
	}
	return cfg, nil
}

// ReferencePressure returns the reference acquired by the autozero engine,
// in pressure output LSB of the high 16 bits.
func (d *Dev) ReferencePressure() (int16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var reg [2]byte
	if err := d.readRegs(regRefPL, reg[:]); err != nil {
		return 0, err
	}
	return int16(uint16(reg[1])<<8 | uint16(reg[0])), nil
}

// SetPressureOffset programs the one-point calibration offset subtracted
// from the pressure output, in pressure output LSB of the high 16 bits.
func (d *Dev) SetPressureOffset(offset int16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeRegs(regRpdsL, []byte{byte(offset), byte(uint16(offset) >> 8)})
}

// PressureOffset returns the one-point calibration offset.
func (d *Dev) PressureOffset() (int16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var reg [2]byte
	if err := d.readRegs(regRpdsL, reg[:]); err != nil {
		return 0, err
	}
	return int16(uint16(reg[1])<<8 | uint16(reg[0])), nil
}
