// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ilps28qsw controls an STMicroelectronics ILPS28QSW MEMS absolute
// pressure and temperature sensor over I²C.
//
// The sensor measures pressure on a 1260hPa or 4060hPa full scale with a
// 24 bit ADC, temperature with a 16 bit ADC, and exposes an auxiliary
// analog hub / QVAR electrostatic channel that can be sampled on its own or
// interleaved with pressure samples. A 128 sample FIFO, pressure threshold
// interrupts and an autozero/reference pressure engine are available.
//
// The ilps28qsw.Dev type implements the physic.SenseEnv interface. The
// physic.Env measurement results contain a pressure and temperature value
// though the humidity is not set.
//
// Datasheet: https://www.st.com/resource/en/datasheet/ilps28qsw.pdf
package ilps28qsw
