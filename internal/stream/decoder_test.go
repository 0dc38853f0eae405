package stream

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "data: {\"token\":\"He\"}\n\n" +
	": keep-alive\n" +
	"data: {\"token\":\"llo\"}\n" +
	"event: ignored\n" +
	"   data: {\"token\":\" wörld ✓\"}   \n" +
	"data: {\"token\":\"\",\"done\":true,\"model\":\"m\"}\n"

func feedAll(d *Decoder, chunks [][]byte) []string {
	var out []string
	for _, c := range chunks {
		for _, f := range d.Feed(c) {
			out = append(out, string(f))
		}
	}
	return out
}

func TestDecoder_ChunkingInvariance(t *testing.T) {
	var whole Decoder
	want := feedAll(&whole, [][]byte{[]byte(sample)})
	require.Len(t, want, 4)

	data := []byte(sample)
	for size := 1; size <= len(data); size++ {
		var chunks [][]byte
		for i := 0; i < len(data); i += size {
			end := min(i+size, len(data))
			chunks = append(chunks, data[i:end])
		}

		var d Decoder
		got := feedAll(&d, chunks)
		assert.Equal(t, want, got, "chunk size %d", size)
		assert.Equal(t, StateEmpty, d.State(), "chunk size %d", size)
	}
}

func TestDecoder_SplitMultibyteRune(t *testing.T) {
	line := []byte("data: {\"token\":\"✓\"}\n")
	split := bytes.IndexByte(line, 0xE2) + 1

	var d Decoder
	assert.Empty(t, d.Feed(line[:split]))
	assert.Equal(t, StatePartial, d.State())

	frames := d.Feed(line[split:])
	require.Len(t, frames, 1)
	ev, err := ParseTokenEvent(frames[0])
	require.NoError(t, err)
	assert.Equal(t, "✓", ev.Token)
}

func TestDecoder_TrailingFragmentDiscarded(t *testing.T) {
	var d Decoder
	frames := d.Feed([]byte("data: {\"token\":\"a\"}\ndata: {\"token\":\"b\"}"))
	require.Len(t, frames, 1)
	assert.Equal(t, StatePartial, d.State())

	dropped := d.Close()
	assert.Equal(t, len(`data: {"token":"b"}`), dropped)
	assert.Equal(t, StateClosed, d.State())
	assert.Nil(t, d.Feed([]byte("\n")), "closed decoder ignores input")
}

func TestDecoder_FramesDoNotAliasInput(t *testing.T) {
	buf := []byte("data: abc\n")
	var d Decoder
	frames := d.Feed(buf)
	copy(buf, "XXXXXXXXX\n")
	assert.Equal(t, "abc", string(frames[0]))
}

func TestReader_HelloExample(t *testing.T) {
	body := "data: {\"token\":\"He\"}\ndata: {\"token\":\"llo\"}\ndata: {\"done\":true}\n"
	r := NewReader(iotest.OneByteReader(strings.NewReader(body)))

	var text strings.Builder
	for {
		frame, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		ev, err := ParseTokenEvent(frame)
		require.NoError(t, err)
		if ev.Done {
			continue
		}
		text.WriteString(ev.Token)
	}
	assert.Equal(t, "Hello", text.String())
}

func TestDecode_MalformedFrameSkipped(t *testing.T) {
	body := "data: {\"token\":\"a\"}\ndata: {broken\ndata: {\"token\":\"b\"}\n"

	var tokens []string
	var failures int
	err := Decode(strings.NewReader(body), func(frame []byte) bool {
		ev, err := ParseTokenEvent(frame)
		if err != nil {
			failures++
			return true
		}
		tokens = append(tokens, ev.Token)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tokens)
	assert.Equal(t, 1, failures)
}

func TestDecode_StopsWhenCallbackDeclines(t *testing.T) {
	body := "data: 1\ndata: 2\ndata: 3\n"
	var seen []string
	err := Decode(strings.NewReader(body), func(frame []byte) bool {
		seen = append(seen, string(frame))
		return len(seen) < 2
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, seen)
}

func TestReader_ReadErrorAfterFrames(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewReader(io.MultiReader(strings.NewReader("data: x\n"), iotest.ErrReader(boom)))

	frame, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "x", string(frame))

	_, err = r.Next()
	assert.ErrorIs(t, err, boom)
}

func TestParseTerminalEvent(t *testing.T) {
	ev, err := ParseTerminalEvent([]byte(`{"event_type":"complete","timestamp":"t","message":"done","module":"ssh_brute"}`))
	require.NoError(t, err)
	assert.True(t, ev.Final())
	assert.Equal(t, "ssh_brute", ev.Module)

	_, err = ParseTerminalEvent([]byte(`nope`))
	assert.Error(t, err)
}
