//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"context"
	"machine"
	"time"

	"github.com/itohio/gosampler/pkg/loop"
	"github.com/itohio/gosampler/pkg/report"
	"github.com/itohio/gosampler/pkg/sampling"
	"github.com/itohio/gosampler/pkg/sensor"
)

var uart = machine.UART0

// adcSensor reads the analog input. machine.ADC.Get scales every
// resolution to the full 16-bit range.
type adcSensor struct {
	adc machine.ADC
}

func (s *adcSensor) Read() (sensor.Reading, error) {
	value := s.adc.Get()
	uv := int64(value) * ADC_REFERENCE_MV * 1000 / 0xffff
	return sensor.Reading{Microvolts: int32(uv), Timestamp: time.Now()}, nil
}

func (s *adcSensor) Close() error { return nil }

// uartLink polls the UART receive buffer without blocking.
type uartLink struct {
	uart *machine.UART
}

func (l uartLink) TryReadByte() (byte, bool) {
	if l.uart.Buffered() == 0 {
		return 0, false
	}
	b, err := l.uart.ReadByte()
	if err != nil {
		return 0, false
	}
	return b, true
}

func main() {
	PIN_ADC.Configure(machine.PinConfig{Mode: machine.PinInput})

	adc := machine.ADC{Pin: PIN_ADC}
	adc.Configure(machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	})

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	l := loop.New(
		uartLink{uart: uart},
		sensor.NewAveraging(&adcSensor{adc: adc}, NUM_SAMPLES),
		report.New(uart, report.Full),
		sampling.Initial(),
		nil,
	)

	// Nothing cancels the context on the device; Run only returns on a fatal error.
	for {
		if err := l.Run(context.Background()); err != nil {
			println("sampler:", err.Error())
			time.Sleep(time.Second)
		}
	}
}
