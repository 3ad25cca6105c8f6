package grab

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/itohio/gosampler/pkg/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Measurement
		wantErr bool
	}{
		{name: "full", line: "V =   812 mV  T =  3 s\r\n", want: Measurement{Millivolts: 812, PeriodS: 3}},
		{name: "full negative", line: "V =   -45 mV  T =  9 s", want: Measurement{Millivolts: -45, PeriodS: 9}},
		{name: "full wide", line: "V = 12345 mV  T =  1 s", want: Measurement{Millivolts: 12345, PeriodS: 1}},
		{name: "compact", line: " 812\r\n", want: Measurement{Millivolts: 812}},
		{name: "compact negative", line: " -45", want: Measurement{Millivolts: -45}},
		{name: "empty", line: "\r\n", wantErr: true},
		{name: "garbage", line: "hello", wantErr: true},
		{name: "wrong unit", line: "V =   812 uV  T =  3 s", wantErr: true},
		{name: "bad reading", line: "V =   8x2 mV  T =  3 s", wantErr: true},
		{name: "bad period", line: "V =   812 mV  T =  x s", wantErr: true},
		{name: "truncated", line: "V =   812 mV  T", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMeasurement_Volts(t *testing.T) {
	assert.InDelta(t, 0.812, Measurement{Millivolts: 812}.Volts(), 1e-9)
	assert.InDelta(t, -0.045, Measurement{Millivolts: -45}.Volts(), 1e-9)
}

func TestDailyFile(t *testing.T) {
	dir := t.TempDir()
	d := NewDailyFile(dir)
	assert.Equal(t, "", d.Path())

	day1 := time.Date(2024, 3, 7, 23, 59, 58, 0, time.Local)
	day2 := time.Date(2024, 3, 8, 0, 0, 1, 0, time.Local)

	require.NoError(t, d.Write(Measurement{Time: day1, Millivolts: 812}))
	require.NoError(t, d.Write(Measurement{Time: day1.Add(time.Second), Millivolts: -45}))
	assert.Equal(t, filepath.Join(dir, "2024-03-07"), d.Path())

	require.NoError(t, d.Write(Measurement{Time: day2, Millivolts: 1234}))
	assert.Equal(t, filepath.Join(dir, "2024-03-08"), d.Path())
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	first, err := os.ReadFile(filepath.Join(dir, "2024-03-07"))
	require.NoError(t, err)
	assert.Equal(t,
		"Day-Month-Year Hour:Min:Sec      Voltage, V\n"+
			"07-03-2024 23:59:58         0.812 V\n"+
			"07-03-2024 23:59:59        -0.045 V\n",
		string(first))

	second, err := os.ReadFile(filepath.Join(dir, "2024-03-08"))
	require.NoError(t, err)
	assert.Equal(t,
		"Day-Month-Year Hour:Min:Sec      Voltage, V\n"+
			"08-03-2024 00:00:01         1.234 V\n",
		string(second))
}

func TestDailyFile_AppendsWithoutSecondHeader(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2024, 3, 7, 12, 0, 0, 0, time.Local)

	d := NewDailyFile(dir)
	require.NoError(t, d.Write(Measurement{Time: ts, Millivolts: 1}))
	require.NoError(t, d.Close())

	d = NewDailyFile(dir)
	require.NoError(t, d.Write(Measurement{Time: ts.Add(time.Second), Millivolts: 2}))
	require.NoError(t, d.Close())

	data, err := os.ReadFile(filepath.Join(dir, "2024-03-07"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "Voltage, V"))
	assert.Equal(t, 3, strings.Count(string(data), "\n"))
}

func TestDailyFile_MissingDir(t *testing.T) {
	d := NewDailyFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, d.Write(Measurement{Time: time.Now()}))
}

// fakePort replays canned device output and records what was sent.
type fakePort struct {
	in           io.Reader
	out          bytes.Buffer
	inputResets  int
	outputResets int
	// sentAtReset is the output written before the input was flushed.
	sentAtReset string
}

func (p *fakePort) Read(b []byte) (int, error)  { return p.in.Read(b) }
func (p *fakePort) Write(b []byte) (int, error) { return p.out.Write(b) }

func (p *fakePort) ResetInputBuffer() error {
	p.inputResets++
	p.sentAtReset = p.out.String()
	return nil
}

func (p *fakePort) ResetOutputBuffer() error {
	p.outputResets++
	return nil
}

func newTestClient(input string) (*Client, *fakePort, *[]time.Duration) {
	port := &fakePort{in: strings.NewReader(input)}
	c := NewClient(port, 200*time.Millisecond, nil)
	var slept []time.Duration
	c.sleep = func(d time.Duration) { slept = append(slept, d) }
	c.now = func() time.Time { return time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC) }
	return c, port, &slept
}

func TestClient_Start(t *testing.T) {
	c, port, slept := newTestClient("")

	require.NoError(t, c.Start(3))

	assert.Equal(t, "s3r", port.out.String())
	assert.Equal(t, "s", port.sentAtReset)
	assert.Equal(t, 1, port.inputResets)
	assert.Equal(t, 1, port.outputResets)
	assert.Equal(t, []time.Duration{200 * time.Millisecond}, *slept)
}

func TestClient_StartInvalidPeriod(t *testing.T) {
	c, port, _ := newTestClient("")

	assert.Error(t, c.Start(0))
	assert.Error(t, c.Start(10))
	assert.Empty(t, port.out.String())
}

func TestClient_Next(t *testing.T) {
	c, _, _ := newTestClient("mV  T =  1 s\r\nV =   812 mV  T =  3 s\r\n\r\nnoise\r\n -45\r\n")
	require.NoError(t, c.Start(3))

	m, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, int32(812), m.Millivolts)
	assert.Equal(t, 3, m.PeriodS)
	assert.Equal(t, time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC), m.Time)

	m, err = c.Next()
	require.NoError(t, err)
	assert.Equal(t, int32(-45), m.Millivolts)
	assert.Equal(t, 0, m.PeriodS)

	_, err = c.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestClient_Send(t *testing.T) {
	c, port, _ := newTestClient("")

	require.NoError(t, c.Send(command.Command{Kind: command.Stop}))
	require.NoError(t, c.Send(command.Command{Kind: command.SetPeriod, Seconds: 7}))
	require.NoError(t, c.Send(command.Command{Kind: command.Start}))
	assert.Error(t, c.Send(command.Command{}))

	assert.Equal(t, "s7r", port.out.String())
}
