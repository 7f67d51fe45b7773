// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ilps28qsw

const (
	// Addr is the device I²C address. The ILPS28QSW has no address select
	// pin, so the address is fixed.
	Addr uint16 = 0x5c

	// chipID is the expected content of the WHO_AM_I register.
	chipID byte = 0xb4
)

// Register addresses.
const (
	regInterruptCfg        byte = 0x0b
	regThsPL               byte = 0x0c
	regThsPH               byte = 0x0d
	regIfCtrl              byte = 0x0e
	regWhoAmI              byte = 0x0f
	regCtrl1               byte = 0x10
	regCtrl2               byte = 0x11
	regCtrl3               byte = 0x12
	regFifoCtrl            byte = 0x14
	regFifoWtm             byte = 0x15
	regRefPL               byte = 0x16
	regRefPH               byte = 0x17
	regI3cIfCtrl           byte = 0x19
	regRpdsL               byte = 0x1a
	regRpdsH               byte = 0x1b
	regIntSource           byte = 0x24
	regFifoStatus1         byte = 0x25
	regFifoStatus2         byte = 0x26
	regStatus              byte = 0x27
	regPressOutXL          byte = 0x28
	regPressOutL           byte = 0x29
	regPressOutH           byte = 0x2a
	regTempOutL            byte = 0x2b
	regTempOutH            byte = 0x2c
	regFifoDataOutPressXL  byte = 0x78
)

// INTERRUPT_CFG (0x0B) fields.
const (
	intCfgPHE      byte = 1 << 0 // enable interrupt on pressure over threshold
	intCfgPLE      byte = 1 << 1 // enable interrupt on pressure under threshold
	intCfgLIR      byte = 1 << 2 // latch interrupt request
	intCfgResetAZ  byte = 1 << 4 // reset autozero reference
	intCfgAutoZero byte = 1 << 5 // acquire autozero reference
	intCfgResetARP byte = 1 << 6 // reset autorefp reference
	intCfgAutoRefP byte = 1 << 7 // acquire autorefp reference
)

// THS_P_H (0x0D) fields. THS_P_L holds the threshold low byte in full.
const thsPHMask byte = 0x7f

// IF_CTRL (0x0E) fields.
const ifCtrlSDAPullUp byte = 1 << 5

// CTRL_REG1 (0x10) fields.
const (
	ctrl1AvgMask  byte = 0x07
	ctrl1OdrMask  byte = 0x78
	ctrl1OdrShift      = 3
)

// CTRL_REG2 (0x11) fields.
const (
	ctrl2OneShot byte = 1 << 0
	ctrl2SWReset byte = 1 << 2
	ctrl2BDU     byte = 1 << 3
	ctrl2EnLPFP  byte = 1 << 4
	ctrl2LPFPCfg byte = 1 << 5
	ctrl2FSMode  byte = 1 << 6
	ctrl2Boot    byte = 1 << 7
)

// CTRL_REG3 (0x12) fields.
const (
	ctrl3IfAddInc    byte = 1 << 0 // auto-increment register address on multi-byte access
	ctrl3AHQVARPAuto byte = 1 << 5 // interleave AH/QVAR samples with pressure samples
	ctrl3AHQVAREn    byte = 1 << 7 // enable the AH/QVAR analog channel
)

// FIFO_CTRL (0x14) fields.
const (
	fifoCtrlModeMask  byte = 0x03
	fifoCtrlTrigMode  byte = 1 << 2
	fifoCtrlStopOnWTM byte = 1 << 3
	fifoCtrlAHQVAREn  byte = 1 << 4 // store interleaved AH/QVAR samples in FIFO
)

// FIFO_WTM (0x15) fields.
const fifoWtmMask byte = 0x7f

// I3C_IF_CTRL (0x19) fields.
const (
	i3cBusAvbMask byte = 0x03
	i3cASFOn      byte = 1 << 5
)

// INT_SOURCE (0x24) fields.
const (
	intSrcPH     byte = 1 << 0 // pressure over threshold
	intSrcPL     byte = 1 << 1 // pressure under threshold
	intSrcIA     byte = 1 << 2 // any threshold interrupt active
	intSrcBootOn byte = 1 << 7 // boot phase running
)

// FIFO_STATUS2 (0x26) fields.
const (
	fifoStatus2FullIA byte = 1 << 5
	fifoStatus2OvrIA  byte = 1 << 6
	fifoStatus2WtmIA  byte = 1 << 7
)

// STATUS (0x27) fields.
const (
	statusPDA byte = 1 << 0 // pressure data available
	statusTDA byte = 1 << 1 // temperature data available
	statusPOR byte = 1 << 4 // pressure data overrun
	statusTOR byte = 1 << 5 // temperature data overrun
)
