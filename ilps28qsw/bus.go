// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ilps28qsw

// AntiSpikeFilter configures the I3C interface glitch filter.
type AntiSpikeFilter uint8

const (
	// FilterAuto enables the filter only during I3C broadcast addressing.
	FilterAuto AntiSpikeFilter = 0
	// FilterAlwaysOn keeps the filter enabled.
	FilterAlwaysOn AntiSpikeFilter = 1
)

// BusAvailableTime selects the I3C bus available condition time used for
// in-band interrupts.
type BusAvailableTime uint8

const (
	BusAvailable50us BusAvailableTime = 0
	BusAvailable2us  BusAvailableTime = 1
	BusAvailable1ms  BusAvailableTime = 2
	BusAvailable25ms BusAvailableTime = 3
)

// BusMode holds the I3C interface configuration.
type BusMode struct {
	Filter        AntiSpikeFilter
	AvailableTime BusAvailableTime
}

// SetBusMode configures the I3C interface.
func (d *Dev) SetBusMode(m BusMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b [1]byte
	if err := d.readRegs(regI3cIfCtrl, b[:]); err != nil {
		return err
	}
	b[0] &^= i3cASFOn | i3cBusAvbMask
	if m.Filter == FilterAlwaysOn {
		b[0] |= i3cASFOn
	}
	b[0] |= byte(m.AvailableTime) & i3cBusAvbMask
	return d.writeRegs(regI3cIfCtrl, b[:])
}

// BusMode returns the I3C interface configuration.
func (d *Dev) BusMode() (BusMode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b [1]byte
	if err := d.readRegs(regI3cIfCtrl, b[:]); err != nil {
		return BusMode{}, err
	}
	m := BusMode{AvailableTime: BusAvailableTime(b[0] & i3cBusAvbMask)}
	if b[0]&i3cASFOn != 0 {
		m.Filter = FilterAlwaysOn
	}
	return m, nil
}

// SetSDAPullUp switches the internal pull-up resistor on the SDA line.
func (d *Dev) SetSDAPullUp(enable bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var bit byte
	if enable {
		bit = ifCtrlSDAPullUp
	}
	return d.updateReg(regIfCtrl, ifCtrlSDAPullUp, bit)
}

// SDAPullUp returns whether the internal pull-up resistor on the SDA line is
// enabled.
func (d *Dev) SDAPullUp() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b [1]byte
	if err := d.readRegs(regIfCtrl, b[:]); err != nil {
		return false, err
	}
	return b[0]&ifCtrlSDAPullUp != 0, nil
}
