package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		in     byte
		want   Command
		wantOK bool
	}{
		{"lower r", 'r', Command{Kind: Start}, true},
		{"upper R", 'R', Command{Kind: Start}, true},
		{"lower s", 's', Command{Kind: Stop}, true},
		{"upper S", 'S', Command{Kind: Stop}, true},
		{"digit 1", '1', Command{Kind: SetPeriod, Seconds: 1}, true},
		{"digit 5", '5', Command{Kind: SetPeriod, Seconds: 5}, true},
		{"digit 9", '9', Command{Kind: SetPeriod, Seconds: 9}, true},
		{"digit 0", '0', Command{}, false},
		{"newline", '\n', Command{}, false},
		{"carriage return", '\r', Command{}, false},
		{"q", 'q', Command{}, false},
		{"nul", 0x00, Command{}, false},
		{"high byte", 0xff, Command{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_OnlyProtocolBytesAreCommands(t *testing.T) {
	accepted := 0
	for b := 0; b < 256; b++ {
		if _, ok := Parse(byte(b)); ok {
			accepted++
		}
	}
	// r R s S 1..9
	assert.Equal(t, 13, accepted)
}

func TestParse_PeriodDigits(t *testing.T) {
	for d := MinSeconds; d <= MaxSeconds; d++ {
		cmd, ok := Parse(byte('0' + d))
		require.True(t, ok)
		assert.Equal(t, SetPeriod, cmd.Kind)
		assert.Equal(t, time.Duration(d)*time.Second, cmd.Period())
	}
}

func TestNewSetPeriod(t *testing.T) {
	cmd, err := NewSetPeriod(3)
	require.NoError(t, err)
	assert.Equal(t, Command{Kind: SetPeriod, Seconds: 3}, cmd)

	_, err = NewSetPeriod(0)
	assert.Error(t, err)

	_, err = NewSetPeriod(10)
	assert.Error(t, err)
}

func TestCommand_Byte(t *testing.T) {
	for b := 0; b < 256; b++ {
		cmd, ok := Parse(byte(b))
		if !ok {
			continue
		}
		back, ok := Parse(cmd.Byte())
		require.True(t, ok)
		assert.Equal(t, cmd, back)
	}

	assert.Equal(t, byte(0), Command{}.Byte())
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "start", Command{Kind: Start}.String())
	assert.Equal(t, "stop", Command{Kind: Stop}.String())
	assert.Equal(t, "period 7s", Command{Kind: SetPeriod, Seconds: 7}.String())
	assert.Equal(t, "none", Command{}.String())
}
