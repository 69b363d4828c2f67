package sse

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoder_Events(t *testing.T) {
	stream := strings.Join([]string{
		": keep-alive",
		"data: {\"running\": true}",
		"",
		"event: progress",
		"id: 7",
		"data: line one",
		"data: line two",
		"",
		"",
		"data:no-space",
		"",
	}, "\n")

	d := NewDecoder(strings.NewReader(stream))

	ev, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "message", ev.Type)
	assert.Equal(t, `{"running": true}`, ev.Data)

	ev, err = d.Next()
	require.NoError(t, err)
	assert.Equal(t, "progress", ev.Type)
	assert.Equal(t, "7", ev.ID)
	assert.Equal(t, "line one\nline two", ev.Data)

	ev, err = d.Next()
	require.NoError(t, err)
	assert.Equal(t, "no-space", ev.Data)

	_, err = d.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecoder_CRLFAndUnterminatedEvent(t *testing.T) {
	d := NewDecoder(strings.NewReader("data: a\r\n\r\ndata: dangling"))

	ev, err := d.Next()
	require.NoError(t, err)
	assert.Equal(t, "a", ev.Data)

	_, err = d.Next()
	assert.ErrorIs(t, err, io.EOF, "an event cut off by the end of the stream is dropped")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestDecoder_TransportError(t *testing.T) {
	d := NewDecoder(failingReader{})

	_, err := d.Next()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}
