// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ilps28qsw

import "periph.io/x/conn/v3/physic"

// AHQVARData is a reading of the AH/QVAR analog channel.
type AHQVARData struct {
	// Raw is the sign extended, left justified code as read from the
	// pressure output registers.
	Raw int32
	// LSB is the 24 bit channel code.
	LSB int32
	// Potential is the channel input referred to the 426000 LSB/mV channel
	// sensitivity.
	Potential physic.ElectricPotential
}

// SetAHQVAREnabled switches the AH/QVAR analog channel on or off. While
// enabled and not in interleaved mode, the pressure output registers carry
// AH/QVAR samples instead of pressure samples.
func (d *Dev) SetAHQVAREnabled(enable bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var bit byte
	if enable {
		bit = ctrl3AHQVAREn
	}
	return d.updateReg(regCtrl3, ctrl3AHQVAREn, bit)
}

// AHQVAREnabled returns whether the AH/QVAR analog channel is on.
func (d *Dev) AHQVAREnabled() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b [1]byte
	if err := d.readRegs(regCtrl3, b[:]); err != nil {
		return false, err
	}
	return b[0]&ctrl3AHQVAREn != 0, nil
}

// ReadAHQVAR returns a sample of the AH/QVAR analog channel.
func (d *Dev) ReadAHQVAR() (AHQVARData, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var data AHQVARData
	var buf [3]byte
	if err := d.readRegs(regPressOutXL, buf[:]); err != nil {
		return data, err
	}
	data.Raw = int32(uint32(buf[2])<<24 | uint32(buf[1])<<16 | uint32(buf[0])<<8)
	data.LSB = data.Raw >> 8
	data.Potential = qvarFromLSB(data.LSB)
	return data, nil
}
