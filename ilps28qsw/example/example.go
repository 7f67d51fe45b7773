package example

import (
	"log"
	"time"

	"github.com/openbaro/devices/barograph"
	"github.com/openbaro/devices/ilps28qsw"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Example draws a live pressure trend strip at the console for a minute.
func Example() {

	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	// Use i2creg I²C bus registry to find the first available I²C bus.
	b, err := i2creg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer b.Close()

	d, err := ilps28qsw.NewI2C(b, &ilps28qsw.DefaultOpts)
	if err != nil {
		log.Fatal(err)
	}
	defer d.Halt()

	strip := barograph.NewStrip(&barograph.DefaultStripOpts)
	defer strip.Halt()

	ch, err := d.SenseContinuous(time.Second)
	if err != nil {
		log.Fatal(err)
	}

	// Stop after a minute.
	stop := time.After(time.Minute)

	for {
		select {
		case <-stop:
			return
		case env := <-ch:
			if err := strip.Push(env.Pressure); err != nil {
				log.Fatal(err)
			}
		}
	}
}
