package ads1115

import (
	"testing"
	"time"

	"github.com/itohio/gosampler/pkg/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

func TestConfigBytes(t *testing.T) {
	tests := []struct {
		name      string
		channel   int
		dataRate  int
		fullScale physic.ElectricPotential
		msb, lsb  byte
		wantErr   bool
	}{
		{"ch0 128sps 4.096V", 0, 128, 4096 * physic.MilliVolt, 0xC3, 0x83, false},
		{"ch1 128sps 4.096V", 1, 128, 4096 * physic.MilliVolt, 0xD3, 0x83, false},
		{"ch0 8sps 4.096V", 0, 8, 4096 * physic.MilliVolt, 0xC3, 0x03, false},
		{"ch2 860sps 2.048V", 2, 860, 2048 * physic.MilliVolt, 0xE5, 0xE3, false},
		{"invalid channel", 9, 128, 4096 * physic.MilliVolt, 0, 0, true},
		{"invalid data rate", 0, 100, 4096 * physic.MilliVolt, 0, 0, true},
		{"invalid full scale", 0, 128, 3300 * physic.MilliVolt, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msb, lsb, err := configBytes(tt.channel, tt.dataRate, tt.fullScale)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.msb, msb, "msb %02X", msb)
			assert.Equal(t, tt.lsb, lsb, "lsb %02X", lsb)
		})
	}
}

func TestToMicrovolts(t *testing.T) {
	fs := 4096 * physic.MilliVolt
	assert.Equal(t, int32(0), toMicrovolts(0, fs))
	assert.Equal(t, int32(2_048_000), toMicrovolts(16384, fs))
	assert.Equal(t, int32(-4_096_000), toMicrovolts(-32768, fs))
	assert.Equal(t, int32(125), toMicrovolts(1, fs))
}

func TestConversionTime(t *testing.T) {
	assert.Equal(t, 125*time.Millisecond+2*time.Millisecond, conversionTime(8))
	assert.Equal(t, 7812500*time.Nanosecond+2*time.Millisecond, conversionTime(128))
}

func TestSensor_Read(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: DefaultAddress, W: []byte{pointerConfig, 0xC3, 0x83}},
			{Addr: DefaultAddress, W: []byte{pointerConv}, R: []byte{0x19, 0x66}}, // 6502 -> 812750 uV
		},
	}
	defer bus.Close()

	s, err := New(bus, Config{Channel: 0})
	require.NoError(t, err)

	var waited time.Duration
	s.wait = func(d time.Duration) { waited = d }

	r, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, int32(812_750), r.Microvolts)
	assert.Equal(t, int32(812), r.Millivolts())
	assert.Equal(t, conversionTime(DefaultDataRate), waited)
	assert.NoError(t, s.Close())
}

func TestSensor_ReadFault(t *testing.T) {
	bus := &i2ctest.Playback{DontPanic: true}

	s, err := New(bus, Config{Channel: 0})
	require.NoError(t, err)
	s.wait = func(time.Duration) {}

	_, err = s.Read()
	assert.ErrorIs(t, err, sensor.ErrHardwareFault)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(&i2ctest.Playback{}, Config{Channel: 4})
	assert.Error(t, err)
}
