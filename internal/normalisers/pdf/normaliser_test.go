package pdf

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

func fakePages(pages ...string) PageReader {
	return func([]byte) ([]string, error) {
		return pages, nil
	}
}

func TestNew(t *testing.T) {
	n := New()
	require.NotNil(t, n)
	assert.NotNil(t, n.readPages)
}

func TestSupportedMIMETypes(t *testing.T) {
	assert.Equal(t, []string{"application/pdf"}, New().SupportedMIMETypes())
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_NilContent(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise_JoinsPagesWithNewline(t *testing.T) {
	n := New(WithPageReader(fakePages("page one", "page two", "page three")))

	result, err := n.Normalise(context.Background(), &domain.SourceContent{MimeType: MimeType, Data: []byte("%PDF")})

	require.NoError(t, err)
	assert.Equal(t, "page one\npage two\npage three", result.Text)
	assert.Empty(t, result.Warnings)
}

func TestNormalise_EmptyTextIsWarningNotError(t *testing.T) {
	n := New(WithPageReader(fakePages("", "  ")))

	result, err := n.Normalise(context.Background(), &domain.SourceContent{MimeType: MimeType})

	require.NoError(t, err)
	assert.Equal(t, []string{EmptyTextWarning}, result.Warnings)
}

func TestNormalise_ParseErrorIsPermanent(t *testing.T) {
	n := New(WithPageReader(func([]byte) ([]string, error) {
		return nil, errors.New("malformed xref")
	}))

	_, err := n.Normalise(context.Background(), &domain.SourceContent{MimeType: MimeType})

	require.Error(t, err)
	assert.Equal(t, domain.Permanent, domain.Classify(err))
	assert.Contains(t, err.Error(), "malformed xref")
}

func TestReadPages_GarbageInput(t *testing.T) {
	_, err := readPages([]byte("definitely not a pdf"))
	assert.Error(t, err)
}
