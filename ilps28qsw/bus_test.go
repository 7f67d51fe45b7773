// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ilps28qsw

import (
	"testing"

	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestBusMode(t *testing.T) {
	dev, err := getDev(t, nil, pbInit, []i2ctest.IO{
		{Addr: Addr, W: []uint8{0x19}, R: []uint8{0x00}},
		{Addr: Addr, W: []uint8{0x19, 0x22}},
		{Addr: Addr, W: []uint8{0x19}, R: []uint8{0x22}},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer shutdown(t)

	if err := dev.SetBusMode(BusMode{Filter: FilterAlwaysOn, AvailableTime: BusAvailable1ms}); err != nil {
		t.Fatal(err)
	}
	m, err := dev.BusMode()
	if err != nil {
		t.Fatal(err)
	}
	if !liveDevice {
		if m.Filter != FilterAlwaysOn || m.AvailableTime != BusAvailable1ms {
			t.Errorf("incorrect bus mode %+v", m)
		}
	}
}

func TestSDAPullUp(t *testing.T) {
	dev, err := getDev(t, nil, pbInit, []i2ctest.IO{
		{Addr: Addr, W: []uint8{0x0e}, R: []uint8{0x00}},
		{Addr: Addr, W: []uint8{0x0e, 0x20}},
		{Addr: Addr, W: []uint8{0x0e}, R: []uint8{0x20}},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer shutdown(t)

	if err := dev.SetSDAPullUp(true); err != nil {
		t.Fatal(err)
	}
	on, err := dev.SDAPullUp()
	if err != nil {
		t.Fatal(err)
	}
	if !on {
		t.Error("expected the SDA pull-up to be on")
	}
}
