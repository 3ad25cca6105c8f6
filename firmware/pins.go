//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	NUM_SAMPLES = 16 // ADC acquisitions averaged per reported reading

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits (12-bit = 0-4095)

	// ADC pins
	PIN_ADC = machine.A1

	// Serial configuration
	// Longest line "V = -3300 mV  T =  9 s\r\n" is 24 bytes, once per second at most.
	UART_BAUD_RATE = 115200
)
