package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/itohio/gosampler/pkg/grab"
	"github.com/stretchr/testify/assert"
)

type recordingPort struct {
	bytes.Buffer
}

func (p *recordingPort) Read([]byte) (int, error) { return 0, nil }
func (p *recordingPort) ResetInputBuffer() error  { return nil }
func (p *recordingPort) ResetOutputBuffer() error { return nil }

func TestReadCommands(t *testing.T) {
	port := &recordingPort{}
	client := grab.NewClient(port, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	readCommands(ctx, strings.NewReader("5\n\nx\n s \nR\nq\nr\n"), client, cancel, nil)

	assert.Equal(t, "5sr", port.String())
	assert.Error(t, ctx.Err())
}
