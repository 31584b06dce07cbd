package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
)

// createTestDOCX creates a minimal DOCX file in memory.
func createTestDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	contentTypes, err := w.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = contentTypes.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`))
	require.NoError(t, err)

	if documentXML != "" {
		doc, err := w.Create("word/document.xml")
		require.NoError(t, err)
		_, err = doc.Write([]byte(documentXML))
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	return buf.Bytes()
}

const docHeader = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

const docFooter = `</w:body></w:document>`

func normalise(t *testing.T, body string) string {
	t.Helper()
	data := createTestDOCX(t, docHeader+body+docFooter)
	result, err := New().Normalise(context.Background(), &domain.SourceContent{MimeType: MimeType, Data: data})
	require.NoError(t, err)
	return result.Text
}

func TestSupportedMIMETypes(t *testing.T) {
	assert.Equal(t, []string{MimeType}, New().SupportedMIMETypes())
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_Paragraphs(t *testing.T) {
	text := normalise(t, `<w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve"> World</w:t></w:r></w:p>
<w:p><w:r><w:t>Second line</w:t></w:r></w:p>`)

	assert.Equal(t, "Hello World\nSecond line", text)
}

func TestNormalise_TablesTabsAndBreaks(t *testing.T) {
	text := normalise(t, `<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr><w:r><w:t>a</w:t><w:tab/><w:t>b</w:t><w:br/><w:t>c</w:t></w:r></w:p>
<w:tbl><w:tr><w:tc><w:p><w:r><w:t>cell</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`)

	assert.Equal(t, "a\tb\nc\ncell", text)
}

func TestNormalise_NilContent(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_NotAZip(t *testing.T) {
	_, err := New().Normalise(context.Background(), &domain.SourceContent{MimeType: MimeType, Data: []byte("plain")})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, domain.Permanent, domain.Classify(err))
}

func TestNormalise_MissingDocumentXML(t *testing.T) {
	data := createTestDOCX(t, "")
	_, err := New().Normalise(context.Background(), &domain.SourceContent{MimeType: MimeType, Data: data})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "word/document.xml missing")
}
