package main

import (
	"testing"
	"time"

	"github.com/itohio/gosampler/pkg/config"
	"github.com/itohio/gosampler/pkg/link"
	"github.com/itohio/gosampler/pkg/loop"
	"github.com/itohio/gosampler/pkg/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSensor_Simulated(t *testing.T) {
	cfg := config.Default().Sensor
	cfg.Simulated = config.SimulatedConfig{OffsetUV: 500_000, WavePeriod: time.Minute}

	s, err := openSensor(cfg)
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.(*sensor.Simulated)
	assert.True(t, ok)

	r, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, int32(500), r.Millivolts())
}

func TestOpenSensor_Averaging(t *testing.T) {
	cfg := config.Default().Sensor
	cfg.AverageCount = 4

	s, err := openSensor(cfg)
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.(*sensor.Averaging)
	assert.True(t, ok)
}

func TestStdio_IsWaitingLink(t *testing.T) {
	var p port = stdio{Buffer: link.NewBuffer(1)}
	_, ok := p.(loop.ByteWaiter)
	assert.True(t, ok)
}
