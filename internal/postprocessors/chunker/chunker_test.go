package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordTokenizer treats every whitespace separated word as one token.
type wordTokenizer struct{}

func (wordTokenizer) Encode(text string) []int {
	words := strings.Fields(text)
	tokens := make([]int, len(words))
	for i := range words {
		tokens[i] = i
	}
	return tokens
}

func (wordTokenizer) Decode(tokens []int) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = "w" + itoa(t)
	}
	return strings.Join(parts, " ")
}

func (wordTokenizer) Name() string { return "words" }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	return string(b)
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("x ", n))
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := New(wordTokenizer{})
		assert.Equal(t, 800, c.chunkSize)
		assert.Equal(t, 100, c.overlap)
		assert.Equal(t, 700, c.Step())
	})

	t.Run("custom values", func(t *testing.T) {
		c := New(wordTokenizer{}, WithChunkSize(10), WithOverlap(2))
		assert.Equal(t, 10, c.chunkSize)
		assert.Equal(t, 2, c.overlap)
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		c := New(wordTokenizer{}, WithChunkSize(100), WithOverlap(150))
		assert.Less(t, c.overlap, c.chunkSize)
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		c := New(wordTokenizer{}, WithChunkSize(0), WithOverlap(-1))
		assert.Equal(t, 800, c.chunkSize)
		assert.Equal(t, 100, c.overlap)
	})
}

func TestChunker_Name(t *testing.T) {
	assert.Equal(t, "chunker", New(wordTokenizer{}).Name())
}

func TestSplit_Empty(t *testing.T) {
	c := New(wordTokenizer{})
	assert.Empty(t, c.Split(""))
	assert.Empty(t, c.Split("   \n\t"))
}

func TestSplit_WindowCounts(t *testing.T) {
	c := New(wordTokenizer{})

	tests := []struct {
		tokens int
		want   int
	}{
		{1, 1},
		{700, 1},
		{701, 2},
		{800, 2},
		{1400, 2},
		{1401, 3},
		{2100, 3},
	}

	for _, tt := range tests {
		t.Run(itoa(tt.tokens), func(t *testing.T) {
			got := c.Split(words(tt.tokens))
			assert.Len(t, got, tt.want)
			assert.Equal(t, tt.want, c.Count(tt.tokens))
		})
	}
}

func TestSplit_WindowsOverlapAndFinalPartial(t *testing.T) {
	c := New(wordTokenizer{}, WithChunkSize(4), WithOverlap(1))

	got := c.Split(words(8))

	// starts at 0, 3, 6; the last window holds tokens 6 and 7 only
	require.Len(t, got, 3)
	assert.Equal(t, "w0 w1 w2 w3", got[0])
	assert.Equal(t, "w3 w4 w5 w6", got[1])
	assert.Equal(t, "w6 w7", got[2])
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	c := New(wordTokenizer{})
	got := c.Split(words(5))
	require.Len(t, got, 1)
	assert.Equal(t, "w0 w1 w2 w3 w4", got[0])
}

func TestCount_Zero(t *testing.T) {
	assert.Equal(t, 0, New(wordTokenizer{}).Count(0))
}

// byteTokenizer emits one token per byte, so multi-byte characters span
// several tokens the way CJK text does under cl100k_base.
type byteTokenizer struct{}

func (byteTokenizer) Encode(text string) []int {
	tokens := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		tokens[i] = int(text[i])
	}
	return tokens
}

func (byteTokenizer) Decode(tokens []int) string {
	b := make([]byte, len(tokens))
	for i, t := range tokens {
		b[i] = byte(t)
	}
	return string(b)
}

func (byteTokenizer) Name() string { return "bytes" }

func TestSplit_MultiByteWindowsAreValidUTF8(t *testing.T) {
	c := New(byteTokenizer{}, WithChunkSize(800), WithOverlap(100))

	chunks := c.Split(strings.Repeat("数据", 400))

	require.Len(t, chunks, 4)
	for i, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk), "chunk %d", i)
	}
	// 800 bytes end two bytes into the 267th character.
	assert.True(t, strings.HasSuffix(chunks[0], "�"))
	assert.True(t, strings.HasPrefix(chunks[0], "数据"))
}
