// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ilps28qsw

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// OutputDataRate selects the sensor sampling frequency.
type OutputDataRate uint8

const (
	// RateOneShot keeps the sensor powered down between software triggered
	// conversions.
	RateOneShot OutputDataRate = iota
	Rate1Hz
	Rate4Hz
	Rate10Hz
	Rate25Hz
	Rate50Hz
	Rate75Hz
	Rate100Hz
	Rate200Hz
)

var odrPeriods = [...]time.Duration{
	0,
	time.Second,
	250 * time.Millisecond,
	100 * time.Millisecond,
	40 * time.Millisecond,
	20 * time.Millisecond,
	13334 * time.Microsecond,
	10 * time.Millisecond,
	5 * time.Millisecond,
}

// Period returns the time between two samples at this rate, or 0 for
// RateOneShot.
func (r OutputDataRate) Period() time.Duration {
	if int(r) >= len(odrPeriods) {
		return 0
	}
	return odrPeriods[r]
}

// Averaging selects how many raw conversions are averaged internally per
// output sample.
type Averaging uint8

const (
	Average4 Averaging = iota
	Average8
	Average16
	Average32
	Average64
	Average128
	Average256
	Average512
)

// FullScale selects the pressure measurement range.
type FullScale uint8

const (
	// FullScale1260hPa measures up to 1260hPa at 4096 LSB/hPa.
	FullScale1260hPa FullScale = 0
	// FullScale4060hPa measures up to 4060hPa at 2048 LSB/hPa.
	FullScale4060hPa FullScale = 1
)

// LowPassFilter configures the additional low-pass filter on the pressure
// output path. Bit 0 enables the filter, bit 1 selects the ODR/9 cutoff.
type LowPassFilter uint8

const (
	LPFDisabled LowPassFilter = 0
	LPFOdrDiv4  LowPassFilter = 1
	LPFOdrDiv9  LowPassFilter = 3
)

// Mode holds the sensor conversion parameters.
type Mode struct {
	ODR       OutputDataRate
	Averaging Averaging
	FullScale FullScale
	Filter    LowPassFilter
	// Interleaved multiplexes AH/QVAR samples with pressure samples on the
	// output registers and in the FIFO. Bit 0 of the pressure XL byte then
	// tags AH/QVAR samples.
	Interleaved bool
}

// Opts holds the configuration applied at construction time.
type Opts struct {
	Mode Mode
	// SDAPullUp enables the internal pull-up resistor on the SDA line.
	SDAPullUp bool
}

// DefaultOpts runs the sensor continuously at 4Hz on the 1260hPa range.
var DefaultOpts = Opts{
	Mode: Mode{ODR: Rate4Hz, Averaging: Average16, FullScale: FullScale1260hPa},
}

// Measurement is a decoded sample from the output registers.
type Measurement struct {
	// Pressure is set when the sample carries the pressure channel.
	Pressure physic.Pressure
	// RawPressure is the sign extended, left justified 24 bit pressure code.
	RawPressure int32
	Temperature physic.Temperature
	// RawTemperature counts 1/100 °C per LSB.
	RawTemperature int16
	// QVAR and RawQVAR are set instead of Pressure when the device is in
	// interleaved mode and the sample carries the AH/QVAR channel.
	QVAR    physic.ElectricPotential
	RawQVAR int32
	IsQVAR  bool
}

var errOneShotTimeout = errors.New("ilps28qsw: timeout waiting for one-shot conversion")

// Dev is a handle to an ILPS28QSW sensor.
type Dev struct {
	d        *i2c.Dev
	mu       sync.Mutex
	shutdown chan struct{}
	mode     Mode
}

// NewI2C returns a handle to an ILPS28QSW on the specified bus, verifies its
// identity and applies opts. Passing nil opts selects DefaultOpts.
func NewI2C(b i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{d: &i2c.Dev{Bus: b, Addr: Addr}}
	if err := d.start(opts); err != nil {
		return nil, err
	}
	return d, nil
}

// readRegs reads len(b) consecutive registers starting at reg.
func (d *Dev) readRegs(reg byte, b []byte) error {
	if err := d.d.Tx([]byte{reg}, b); err != nil {
		return fmt.Errorf("ilps28qsw: read reg 0x%02x: %w", reg, err)
	}
	return nil
}

// writeRegs writes b to consecutive registers starting at reg.
func (d *Dev) writeRegs(reg byte, b []byte) error {
	w := make([]byte, 1, len(b)+1)
	w[0] = reg
	w = append(w, b...)
	if err := d.d.Tx(w, nil); err != nil {
		return fmt.Errorf("ilps28qsw: write reg 0x%02x: %w", reg, err)
	}
	return nil
}

// updateReg sets the masked bits of reg to val, leaving the other bits
// untouched.
func (d *Dev) updateReg(reg byte, mask, val byte) error {
	var b [1]byte
	if err := d.readRegs(reg, b[:]); err != nil {
		return err
	}
	b[0] = b[0]&^mask | val&mask
	return d.writeRegs(reg, b[:])
}

func (d *Dev) start(opts *Opts) error {
	id, err := d.WhoAmI()
	if err != nil {
		return err
	}
	if id != chipID {
		return fmt.Errorf("ilps28qsw: unexpected chip id 0x%02x", id)
	}
	// Block data update and register auto-increment, so multi-byte output
	// reads are coherent.
	var reg [2]byte
	if err := d.readRegs(regCtrl2, reg[:]); err != nil {
		return err
	}
	reg[0] |= ctrl2BDU
	reg[1] |= ctrl3IfAddInc
	if err := d.writeRegs(regCtrl2, reg[:]); err != nil {
		return err
	}
	if opts.SDAPullUp {
		if err := d.updateReg(regIfCtrl, ifCtrlSDAPullUp, ifCtrlSDAPullUp); err != nil {
			return err
		}
	}
	return d.SetMode(opts.Mode)
}

// WhoAmI returns the content of the identity register. A working ILPS28QSW
// answers 0xb4.
func (d *Dev) WhoAmI() (byte, error) {
	var b [1]byte
	if err := d.readRegs(regWhoAmI, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// Reset triggers a software reset of the configuration registers and waits
// for it to complete.
func (d *Dev) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.updateReg(regCtrl2, ctrl2SWReset, ctrl2SWReset); err != nil {
		return err
	}
	var b [1]byte
	for start := time.Now(); ; {
		if err := d.readRegs(regCtrl2, b[:]); err != nil {
			return err
		}
		if b[0]&ctrl2SWReset == 0 {
			return nil
		}
		if time.Since(start) > 10*time.Millisecond {
			return errors.New("ilps28qsw: software reset did not complete")
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// Boot reloads the trimming parameters from the internal flash and waits for
// the boot phase to end.
func (d *Dev) Boot() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.updateReg(regCtrl2, ctrl2Boot, ctrl2Boot); err != nil {
		return err
	}
	var b [1]byte
	for start := time.Now(); ; {
		if err := d.readRegs(regIntSource, b[:]); err != nil {
			return err
		}
		if b[0]&intSrcBootOn == 0 {
			return nil
		}
		if time.Since(start) > 50*time.Millisecond {
			return errors.New("ilps28qsw: boot did not complete")
		}
		time.Sleep(time.Millisecond)
	}
}

// Status reports the device state flags.
type Status struct {
	// ResetOngoing is set while a software reset is running.
	ResetOngoing bool
	// BootOngoing is set while the boot phase reloads the trimming
	// parameters.
	BootOngoing bool
	// PressureReady and TemperatureReady flag unread output data.
	PressureReady    bool
	TemperatureReady bool
	// PressureOverrun and TemperatureOverrun flag output data that was
	// overwritten before being read.
	PressureOverrun    bool
	TemperatureOverrun bool
	// MeasurementDone is set once a one-shot conversion has finished.
	MeasurementDone bool
	// ReferenceDone is set once an autozero reference acquisition has
	// finished.
	ReferenceDone bool
}

// Status returns the device state flags.
func (d *Dev) Status() (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var s Status
	var ctrl2, intSrc, status, intCfg [1]byte
	if err := d.readRegs(regCtrl2, ctrl2[:]); err != nil {
		return s, err
	}
	if err := d.readRegs(regIntSource, intSrc[:]); err != nil {
		return s, err
	}
	if err := d.readRegs(regStatus, status[:]); err != nil {
		return s, err
	}
	if err := d.readRegs(regInterruptCfg, intCfg[:]); err != nil {
		return s, err
	}
	s.ResetOngoing = ctrl2[0]&ctrl2SWReset != 0
	s.BootOngoing = intSrc[0]&intSrcBootOn != 0
	s.PressureReady = status[0]&statusPDA != 0
	s.TemperatureReady = status[0]&statusTDA != 0
	s.PressureOverrun = status[0]&statusPOR != 0
	s.TemperatureOverrun = status[0]&statusTOR != 0
	s.MeasurementDone = ctrl2[0]&ctrl2OneShot == 0
	s.ReferenceDone = intCfg[0]&intCfgAutoZero == 0
	return s, nil
}

// Mode returns the conversion parameters currently programmed in the device.
func (d *Dev) Mode() (Mode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var reg [3]byte
	if err := d.readRegs(regCtrl1, reg[:]); err != nil {
		return Mode{}, err
	}
	m := Mode{
		ODR:         OutputDataRate(reg[0] & ctrl1OdrMask >> ctrl1OdrShift),
		Averaging:   Averaging(reg[0] & ctrl1AvgMask),
		Interleaved: reg[2]&ctrl3AHQVARPAuto != 0,
	}
	if m.ODR > Rate200Hz {
		m.ODR = RateOneShot
	}
	if reg[1]&ctrl2FSMode != 0 {
		m.FullScale = FullScale4060hPa
	}
	if reg[1]&ctrl2EnLPFP != 0 {
		m.Filter = LPFOdrDiv4
		if reg[1]&ctrl2LPFPCfg != 0 {
			m.Filter = LPFOdrDiv9
		}
	}
	d.mode = m
	return m, nil
}

// SetMode programs the conversion parameters.
//
// The interleave flag may only be toggled with the sensor powered down and
// the AH/QVAR channel disabled, so the sequence is: power down if an ODR is
// running, switch off AH/QVAR if enabled, program the interleave flag in
// both CTRL_REG3 and FIFO_CTRL, then restore and write the new parameters in
// a single burst.
func (d *Dev) SetMode(m Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var reg [3]byte
	if err := d.readRegs(regCtrl1, reg[:]); err != nil {
		return err
	}
	ctrl1, ctrl2, ctrl3 := reg[0], reg[1], reg[2]

	odrSave := ctrl1 & ctrl1OdrMask
	if odrSave != 0 {
		ctrl1 &^= ctrl1OdrMask
		if err := d.writeRegs(regCtrl1, []byte{ctrl1}); err != nil {
			return err
		}
	}
	qvarSave := ctrl3 & ctrl3AHQVAREn
	if qvarSave != 0 {
		ctrl3 &^= ctrl3AHQVAREn
		if err := d.writeRegs(regCtrl3, []byte{ctrl3}); err != nil {
			return err
		}
	}

	ctrl3 &^= ctrl3AHQVARPAuto
	var fifoBit byte
	if m.Interleaved {
		ctrl3 |= ctrl3AHQVARPAuto
		fifoBit = fifoCtrlAHQVAREn
	}
	if err := d.writeRegs(regCtrl3, []byte{ctrl3}); err != nil {
		return err
	}
	if err := d.updateReg(regFifoCtrl, fifoCtrlAHQVAREn, fifoBit); err != nil {
		return err
	}

	ctrl3 |= qvarSave

	ctrl1 = byte(m.ODR)<<ctrl1OdrShift&ctrl1OdrMask | byte(m.Averaging)&ctrl1AvgMask
	ctrl2 &^= ctrl2EnLPFP | ctrl2LPFPCfg | ctrl2FSMode
	if m.Filter&1 != 0 {
		ctrl2 |= ctrl2EnLPFP
	}
	if m.Filter&2 != 0 {
		ctrl2 |= ctrl2LPFPCfg
	}
	if m.FullScale == FullScale4060hPa {
		ctrl2 |= ctrl2FSMode
	}
	if err := d.writeRegs(regCtrl1, []byte{ctrl1, ctrl2, ctrl3}); err != nil {
		return err
	}
	d.mode = m
	return nil
}

// TriggerOneShot starts a single conversion. It does nothing unless the
// sensor is in one-shot mode.
func (d *Dev) TriggerOneShot() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.triggerOneShot()
}

func (d *Dev) triggerOneShot() error {
	if d.mode.ODR != RateOneShot {
		return nil
	}
	return d.updateReg(regCtrl2, ctrl2OneShot, ctrl2OneShot)
}

// Read returns a decoded sample from the output registers. The sample is
// interpreted with the mode last programmed through SetMode or read through
// Mode.
func (d *Dev) Read() (Measurement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.read()
}

func (d *Dev) read() (Measurement, error) {
	var m Measurement
	var buf [5]byte
	if err := d.readRegs(regPressOutXL, buf[:]); err != nil {
		return m, err
	}
	raw := int32(uint32(buf[2])<<24 | uint32(buf[1])<<16 | uint32(buf[0])<<8)
	m.RawPressure = raw
	if d.mode.Interleaved && buf[0]&1 != 0 {
		m.IsQVAR = true
		m.RawQVAR = raw >> 8
		m.QVAR = qvarFromLSB(m.RawQVAR)
	} else {
		m.Pressure = pressureFromRaw(raw, d.mode.FullScale)
	}
	m.RawTemperature = int16(uint16(buf[4])<<8 | uint16(buf[3]))
	m.Temperature = temperatureFromRaw(m.RawTemperature)
	return m, nil
}

// RawPressure returns the sign extended, left justified 24 bit pressure
// code.
func (d *Dev) RawPressure() (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf [3]byte
	if err := d.readRegs(regPressOutXL, buf[:]); err != nil {
		return 0, err
	}
	return int32(uint32(buf[2])<<24 | uint32(buf[1])<<16 | uint32(buf[0])<<8), nil
}

// RawTemperature returns the 16 bit temperature code, 1/100 °C per LSB.
func (d *Dev) RawTemperature() (int16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf [2]byte
	if err := d.readRegs(regTempOutL, buf[:]); err != nil {
		return 0, err
	}
	return int16(uint16(buf[1])<<8 | uint16(buf[0])), nil
}

// Sense reads pressure and temperature from the device and writes the values
// to the specified env variable. In one-shot mode a conversion is triggered
// and awaited first. Implements physic.SenseEnv.
func (d *Dev) Sense(env *physic.Env) error {
	env.Temperature = 0
	env.Pressure = 0
	env.Humidity = 0
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.mode.ODR == RateOneShot {
		if err := d.triggerOneShot(); err != nil {
			return err
		}
		if err := d.waitOneShot(); err != nil {
			return err
		}
	}
	m, err := d.read()
	if err != nil {
		return err
	}
	env.Pressure = m.Pressure
	env.Temperature = m.Temperature
	return nil
}

func (d *Dev) waitOneShot() error {
	var b [1]byte
	for start := time.Now(); ; {
		if err := d.readRegs(regStatus, b[:]); err != nil {
			return err
		}
		if b[0]&(statusPDA|statusTDA) == statusPDA|statusTDA {
			return nil
		}
		if time.Since(start) > time.Second {
			return errOneShotTimeout
		}
		time.Sleep(time.Millisecond)
	}
}

// SenseContinuous continuously reads from the device and writes the values
// to the returned channel. Implements physic.SenseEnv. To terminate the
// continuous read, call Halt().
//
// If interval is shorter than the sample period of the programmed output
// data rate, an error is returned.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if d.shutdown != nil {
		return nil, errors.New("ilps28qsw: SenseContinuous already running")
	}
	if interval < d.mode.ODR.Period() {
		return nil, errors.New("ilps28qsw: sample interval is < device sample rate")
	}
	d.shutdown = make(chan struct{})
	ch := make(chan physic.Env, 16)
	go func(ch chan physic.Env) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		defer close(ch)
		for {
			select {
			case <-d.shutdown:
				d.shutdown = nil
				return
			case <-ticker.C:
				env := physic.Env{}
				if err := d.Sense(&env); err == nil {
					ch <- env
				}
			}
		}
	}(ch)
	return ch, nil
}

// Halt powers the sensor down. If a SenseContinuous operation is in
// progress, its aborted. Implements conn.Resource.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shutdown != nil {
		close(d.shutdown)
	}
	if err := d.updateReg(regCtrl1, ctrl1OdrMask, 0); err != nil {
		return err
	}
	d.mode.ODR = RateOneShot
	return nil
}

// Precision returns the smallest value change the device can measure in its
// current mode. Implements physic.SenseEnv.
func (d *Dev) Precision(env *physic.Env) {
	env.Temperature = 10 * physic.MilliKelvin
	env.Pressure = pressureFromRaw(1<<8, d.mode.FullScale)
	env.Humidity = 0
}

func (d *Dev) String() string {
	return fmt.Sprintf("ilps28qsw: %s", d.d.String())
}

// pressureFromRaw converts a left justified pressure code to a pressure.
func pressureFromRaw(raw int32, fs FullScale) physic.Pressure {
	// On the 1260hPa scale the 24 bit code counts 4096 LSB/hPa, so the left
	// justified code counts 2^20 per hPa. 10^11 nPa per hPa over 2^20
	// reduces to 48828125/512. The 4060hPa scale halves the sensitivity.
	if fs == FullScale4060hPa {
		return physic.Pressure(int64(raw) * 48828125 / 256)
	}
	return physic.Pressure(int64(raw) * 48828125 / 512)
}

// temperatureFromRaw converts a temperature code, 1/100 °C per LSB.
func temperatureFromRaw(raw int16) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(raw)*physic.Celsius/100
}

// qvarFromLSB converts an AH/QVAR code to a potential. The channel
// sensitivity is 426000 LSB/mV, so 10^6 nV per mV over 426000 reduces to
// 500/213.
func qvarFromLSB(lsb int32) physic.ElectricPotential {
	return physic.ElectricPotential(int64(lsb) * 500 / 213)
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
