// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ilps28qsw

import (
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

var bus i2c.Bus
var liveDevice bool

// Playback for construction with DefaultOpts: identity check, BDU and
// address auto-increment, then the mode programming sequence.
var pbInit = []i2ctest.IO{
	{Addr: Addr, W: []uint8{0x0f}, R: []uint8{0xb4}},
	{Addr: Addr, W: []uint8{0x11}, R: []uint8{0x00, 0x00}},
	{Addr: Addr, W: []uint8{0x11, 0x08, 0x01}},
	{Addr: Addr, W: []uint8{0x10}, R: []uint8{0x00, 0x08, 0x01}},
	{Addr: Addr, W: []uint8{0x12, 0x01}},
	{Addr: Addr, W: []uint8{0x14}, R: []uint8{0x00}},
	{Addr: Addr, W: []uint8{0x14, 0x00}},
	{Addr: Addr, W: []uint8{0x10, 0x12, 0x08, 0x01}},
}

// Same, for one-shot mode.
var pbInitOneShot = []i2ctest.IO{
	{Addr: Addr, W: []uint8{0x0f}, R: []uint8{0xb4}},
	{Addr: Addr, W: []uint8{0x11}, R: []uint8{0x00, 0x00}},
	{Addr: Addr, W: []uint8{0x11, 0x08, 0x01}},
	{Addr: Addr, W: []uint8{0x10}, R: []uint8{0x00, 0x08, 0x01}},
	{Addr: Addr, W: []uint8{0x12, 0x01}},
	{Addr: Addr, W: []uint8{0x14}, R: []uint8{0x00}},
	{Addr: Addr, W: []uint8{0x14, 0x00}},
	{Addr: Addr, W: []uint8{0x10, 0x00, 0x08, 0x01}},
}

// A single 1000hPa / 25.00°C output register read.
var pbRead = i2ctest.IO{Addr: Addr, W: []uint8{0x28}, R: []uint8{0x00, 0x80, 0x3e, 0xc4, 0x09}}

func init() {
	var err error

	liveDevice = os.Getenv("ILPS28QSW") != ""

	// Make sure periph is initialized.
	if _, err = host.Init(); err != nil {
		fmt.Println(err)
	}

	if liveDevice {
		bus, err = i2creg.Open("")
		if err != nil {
			fmt.Println(err)
		}
		// Add the recorder to dump the data stream when we're using a live device.
		bus = &i2ctest.Record{Bus: bus}
	} else {
		bus = &i2ctest.Playback{DontPanic: true}
	}
}

// getDev returns a configured device using either a real i2c bus, or a
// playback bus.
func getDev(t *testing.T, opts *Opts, playbackOps ...[]i2ctest.IO) (*Dev, error) {
	if liveDevice {
		if recorder, ok := bus.(*i2ctest.Record); ok {
			// Clear the operations buffer.
			recorder.Ops = make([]i2ctest.IO, 0, 32)
		}
	} else {
		pb := bus.(*i2ctest.Playback)
		pb.Ops = nil
		pb.Count = 0
		for _, ops := range playbackOps {
			pb.Ops = append(pb.Ops, ops...)
		}
	}
	dev, err := NewI2C(bus, opts)
	if err != nil {
		t.Log("error constructing dev")
		t.Fatal(err)
	}
	return dev, err
}

// shutdown dumps the recorder values if we were running a live device.
func shutdown(t *testing.T) {
	if recorder, ok := bus.(*i2ctest.Record); ok {
		t.Logf("%#v", recorder.Ops)
	}
}

func TestBadChipID(t *testing.T) {
	if liveDevice {
		t.Skip("live device answers the real chip id")
	}
	pb := bus.(*i2ctest.Playback)
	pb.Ops = []i2ctest.IO{{Addr: Addr, W: []uint8{0x0f}, R: []uint8{0x00}}}
	pb.Count = 0
	if _, err := NewI2C(bus, nil); err == nil {
		t.Fatal("expected an error for an unexpected chip id")
	}
}

func TestBasic(t *testing.T) {
	dev, err := getDev(t, nil, pbInit)
	if err != nil {
		t.Fatal(err)
	}
	defer shutdown(t)

	if s := dev.String(); len(s) == 0 {
		t.Error("invalid value for String()")
	}
	env := physic.Env{}
	dev.Precision(&env)
	if env.Humidity != 0 {
		t.Error("this device doesn't measure humidity")
	}
	if env.Temperature != 10*physic.MilliKelvin {
		t.Errorf("incorrect temperature precision %d", env.Temperature)
	}
	// 1/4096 hPa on the 1260hPa scale.
	if env.Pressure != physic.Pressure(24414062) {
		t.Errorf("incorrect pressure precision %d", env.Pressure)
	}
}

func TestSense(t *testing.T) {
	dev, err := getDev(t, nil, pbInit, []i2ctest.IO{pbRead})
	if err != nil {
		t.Fatal(err)
	}
	defer shutdown(t)

	e := physic.Env{}
	if err := dev.Sense(&e); err != nil {
		t.Fatal(err)
	}
	t.Logf("%8s %9s", e.Pressure, e.Temperature)

	if !liveDevice {
		if expected := physic.Pressure(100_000_000_000_000); e.Pressure != expected {
			t.Errorf("incorrect pressure. Expected %s (%d), got %s (%d)", expected, expected, e.Pressure, e.Pressure)
		}
		if expected := physic.ZeroCelsius + 25*physic.Celsius; e.Temperature != expected {
			t.Errorf("incorrect temperature. Expected %s (%d), got %s (%d)", expected, expected, e.Temperature, e.Temperature)
		}
	}
}

func TestSenseOneShot(t *testing.T) {
	opts := &Opts{Mode: Mode{ODR: RateOneShot, Averaging: Average4}}
	dev, err := getDev(t, opts, pbInitOneShot, []i2ctest.IO{
		// Trigger, poll data ready, then read.
		{Addr: Addr, W: []uint8{0x11}, R: []uint8{0x08}},
		{Addr: Addr, W: []uint8{0x11, 0x09}},
		{Addr: Addr, W: []uint8{0x27}, R: []uint8{0x03}},
		// 850.5hPa, -5.25°C.
		{Addr: Addr, W: []uint8{0x28}, R: []uint8{0x00, 0x28, 0x35, 0xf3, 0xfd}},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer shutdown(t)

	e := physic.Env{}
	if err := dev.Sense(&e); err != nil {
		t.Fatal(err)
	}
	if !liveDevice {
		if expected := physic.Pressure(85_050_000_000_000); e.Pressure != expected {
			t.Errorf("incorrect pressure. Expected %d, got %d", expected, e.Pressure)
		}
		if expected := physic.ZeroCelsius + physic.Temperature(-525)*physic.Celsius/100; e.Temperature != expected {
			t.Errorf("incorrect temperature. Expected %d, got %d", expected, e.Temperature)
		}
	}
}

func TestReadInterleaved(t *testing.T) {
	if liveDevice {
		t.Skip("interleaved sample tagging needs a charged QVAR electrode")
	}
	opts := &Opts{Mode: Mode{ODR: Rate4Hz, Averaging: Average16, Interleaved: true}}
	dev, err := getDev(t, opts, []i2ctest.IO{
		{Addr: Addr, W: []uint8{0x0f}, R: []uint8{0xb4}},
		{Addr: Addr, W: []uint8{0x11}, R: []uint8{0x00, 0x00}},
		{Addr: Addr, W: []uint8{0x11, 0x08, 0x01}},
		{Addr: Addr, W: []uint8{0x10}, R: []uint8{0x00, 0x08, 0x01}},
		{Addr: Addr, W: []uint8{0x12, 0x21}},
		{Addr: Addr, W: []uint8{0x14}, R: []uint8{0x00}},
		{Addr: Addr, W: []uint8{0x14, 0x10}},
		{Addr: Addr, W: []uint8{0x10, 0x12, 0x08, 0x21}},
		// Bit 0 of the XL byte set: AH/QVAR sample, code 426001.
		{Addr: Addr, W: []uint8{0x28}, R: []uint8{0x11, 0x80, 0x06, 0xc4, 0x09}},
		// Bit 0 clear: pressure sample.
		{Addr: Addr, W: []uint8{0x28}, R: []uint8{0x00, 0x80, 0x3e, 0xc4, 0x09}},
	})
	if err != nil {
		t.Fatal(err)
	}

	m, err := dev.Read()
	if err != nil {
		t.Fatal(err)
	}
	if !m.IsQVAR {
		t.Fatal("expected an AH/QVAR sample")
	}
	if m.RawQVAR != 426001 {
		t.Errorf("incorrect AH/QVAR code %d", m.RawQVAR)
	}
	if m.QVAR != physic.ElectricPotential(1_000_002) {
		t.Errorf("incorrect AH/QVAR potential %d", m.QVAR)
	}
	if m.Pressure != 0 {
		t.Errorf("pressure must not be set on an AH/QVAR sample, got %d", m.Pressure)
	}
	if expected := physic.ZeroCelsius + 25*physic.Celsius; m.Temperature != expected {
		t.Errorf("incorrect temperature %d", m.Temperature)
	}

	m, err = dev.Read()
	if err != nil {
		t.Fatal(err)
	}
	if m.IsQVAR {
		t.Fatal("expected a pressure sample")
	}
	if expected := physic.Pressure(100_000_000_000_000); m.Pressure != expected {
		t.Errorf("incorrect pressure %d", m.Pressure)
	}
}

func TestMode(t *testing.T) {
	dev, err := getDev(t, nil, pbInit, []i2ctest.IO{
		{Addr: Addr, W: []uint8{0x10}, R: []uint8{0x12, 0x78, 0x21}},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer shutdown(t)

	m, err := dev.Mode()
	if err != nil {
		t.Fatal(err)
	}
	if liveDevice {
		return
	}
	expected := Mode{
		ODR:         Rate4Hz,
		Averaging:   Average16,
		FullScale:   FullScale4060hPa,
		Filter:      LPFOdrDiv9,
		Interleaved: true,
	}
	if m != expected {
		t.Errorf("incorrect mode %+v", m)
	}
}

// TestSetModeSequence verifies the power-down and AH/QVAR disable dance
// around toggling interleaved mode on a running sensor.
func TestSetModeSequence(t *testing.T) {
	if liveDevice {
		t.Skip("register sequence verification is playback only")
	}
	dev, err := getDev(t, nil, pbInit, []i2ctest.IO{
		// Running at 4Hz with AH/QVAR enabled.
		{Addr: Addr, W: []uint8{0x10}, R: []uint8{0x12, 0x08, 0x81}},
		// Power down.
		{Addr: Addr, W: []uint8{0x10, 0x02}},
		// AH/QVAR off.
		{Addr: Addr, W: []uint8{0x12, 0x01}},
		// Interleave flag in CTRL_REG3 and FIFO_CTRL.
		{Addr: Addr, W: []uint8{0x12, 0x21}},
		{Addr: Addr, W: []uint8{0x14}, R: []uint8{0x00}},
		{Addr: Addr, W: []uint8{0x14, 0x10}},
		// New parameters in one burst, AH/QVAR restored.
		{Addr: Addr, W: []uint8{0x10, 0x08, 0x08, 0xa1}},
	})
	if err != nil {
		t.Fatal(err)
	}

	err = dev.SetMode(Mode{ODR: Rate1Hz, Averaging: Average4, Interleaved: true})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSenseContinuous(t *testing.T) {
	readCount := int32(3)

	pb := make([]i2ctest.IO, 0, 16)
	pb = append(pb, pbInit...)
	for i := int32(0); i < readCount; i++ {
		pb = append(pb, pbRead)
	}
	// Halt powers the sensor down.
	pb = append(pb,
		i2ctest.IO{Addr: Addr, W: []uint8{0x10}, R: []uint8{0x12}},
		i2ctest.IO{Addr: Addr, W: []uint8{0x10, 0x02}})

	dev, err := getDev(t, nil, pb)
	if err != nil {
		t.Fatal(err)
	}
	defer shutdown(t)

	if _, err = dev.SenseContinuous(100 * time.Millisecond); err == nil {
		t.Error("expected error for interval < sample period")
	}

	ch, err := dev.SenseContinuous(500 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = dev.SenseContinuous(500 * time.Millisecond); err == nil {
		t.Error("expected an error for concurrent SenseContinuous")
	}

	counter := atomic.Int32{}
	tEnd := time.Now().Add(time.Duration(readCount+2) * time.Second)
	go func() {
		for {
			time.Sleep(50 * time.Millisecond)
			if counter.Load() == readCount || time.Now().After(tEnd) {
				if err := dev.Halt(); err != nil {
					t.Error(err)
				}
				return
			}
		}
	}()

	for e := range ch {
		counter.Add(1)
		t.Log(time.Now(), e)
	}
	if counter.Load() != readCount {
		t.Errorf("expected %d readings, received %d", readCount, counter.Load())
	}
}

func TestReset(t *testing.T) {
	dev, err := getDev(t, nil, pbInit, []i2ctest.IO{
		{Addr: Addr, W: []uint8{0x11}, R: []uint8{0x08}},
		{Addr: Addr, W: []uint8{0x11, 0x0c}},
		{Addr: Addr, W: []uint8{0x11}, R: []uint8{0x08}},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer shutdown(t)

	if err := dev.Reset(); err != nil {
		t.Fatal(err)
	}
}

func TestStatus(t *testing.T) {
	dev, err := getDev(t, nil, pbInit, []i2ctest.IO{
		{Addr: Addr, W: []uint8{0x11}, R: []uint8{0x08}},
		{Addr: Addr, W: []uint8{0x24}, R: []uint8{0x00}},
		{Addr: Addr, W: []uint8{0x27}, R: []uint8{0x03}},
		{Addr: Addr, W: []uint8{0x0b}, R: []uint8{0x00}},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer shutdown(t)

	s, err := dev.Status()
	if err != nil {
		t.Fatal(err)
	}
	if liveDevice {
		return
	}
	expected := Status{
		PressureReady:    true,
		TemperatureReady: true,
		MeasurementDone:  true,
		ReferenceDone:    true,
	}
	if s != expected {
		t.Errorf("incorrect status %+v", s)
	}
}

func TestRawReads(t *testing.T) {
	dev, err := getDev(t, nil, pbInit, []i2ctest.IO{
		{Addr: Addr, W: []uint8{0x28}, R: []uint8{0x00, 0x80, 0x3e}},
		{Addr: Addr, W: []uint8{0x2b}, R: []uint8{0xc4, 0x09}},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer shutdown(t)

	p, err := dev.RawPressure()
	if err != nil {
		t.Fatal(err)
	}
	tr, err := dev.RawTemperature()
	if err != nil {
		t.Fatal(err)
	}
	if liveDevice {
		return
	}
	if p != 4096000<<8 {
		t.Errorf("incorrect raw pressure %d", p)
	}
	if tr != 2500 {
		t.Errorf("incorrect raw temperature %d", tr)
	}
}

// TestConversions exercises the pure code-to-unit conversions.
func TestConversions(t *testing.T) {
	var pTests = []struct {
		raw      int32
		fs       FullScale
		expected physic.Pressure
	}{
		{raw: 0, fs: FullScale1260hPa, expected: 0},
		// 1000hPa at 4096 LSB/hPa.
		{raw: 4096000 << 8, fs: FullScale1260hPa, expected: 100_000_000_000_000},
		// 1013.25hPa.
		{raw: 4150272 << 8, fs: FullScale1260hPa, expected: 101_325_000_000_000},
		// 2000hPa at 2048 LSB/hPa.
		{raw: 4096000 << 8, fs: FullScale4060hPa, expected: 200_000_000_000_000},
		// Negative codes happen with autozero active.
		{raw: -4096 << 8, fs: FullScale1260hPa, expected: -100_000_000_000},
	}
	for _, test := range pTests {
		if p := pressureFromRaw(test.raw, test.fs); p != test.expected {
			t.Errorf("pressureFromRaw(%d, %d) = %d, expected %d", test.raw, test.fs, p, test.expected)
		}
	}

	var tTests = []struct {
		raw      int16
		expected physic.Temperature
	}{
		{raw: 0, expected: physic.ZeroCelsius},
		{raw: 2500, expected: physic.ZeroCelsius + 25*physic.Celsius},
		{raw: -4000, expected: physic.ZeroCelsius - 40*physic.Celsius},
	}
	for _, test := range tTests {
		if temp := temperatureFromRaw(test.raw); temp != test.expected {
			t.Errorf("temperatureFromRaw(%d) = %d, expected %d", test.raw, temp, test.expected)
		}
	}

	// 426000 LSB/mV.
	if v := qvarFromLSB(426000); v != physic.ElectricPotential(1_000_000) {
		t.Errorf("qvarFromLSB(426000) = %d, expected 1mV", v)
	}
	if v := qvarFromLSB(-852000); v != physic.ElectricPotential(-2_000_000) {
		t.Errorf("qvarFromLSB(-852000) = %d, expected -2mV", v)
	}
}

func TestPeriod(t *testing.T) {
	if RateOneShot.Period() != 0 {
		t.Error("one-shot has no sample period")
	}
	if Rate1Hz.Period() != time.Second {
		t.Error("incorrect period for 1Hz")
	}
	if Rate200Hz.Period() != 5*time.Millisecond {
		t.Error("incorrect period for 200Hz")
	}
	if OutputDataRate(200).Period() != 0 {
		t.Error("out of range rate must have no period")
	}
}
