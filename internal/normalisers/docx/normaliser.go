// Package docx extracts the text of Office Open XML word processing files.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/sercha-drive/internal/core/domain"
	"github.com/custodia-labs/sercha-drive/internal/core/ports/driven"
)

// MimeType is the DOCX MIME type.
const MimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MimeType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise returns the paragraph text of word/document.xml, one paragraph
// per line, including paragraphs inside tables.
func (n *Normaliser) Normalise(_ context.Context, content *domain.SourceContent) (*driven.NormaliseResult, error) {
	if content == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(content.Data), int64(len(content.Data)))
	if err != nil {
		return nil, domain.NewPermanent(fmt.Errorf("%w: not a docx archive: %v", domain.ErrInvalidInput, err))
	}

	body, err := readEntry(reader, "word/document.xml")
	if err != nil {
		return nil, domain.NewPermanent(err)
	}

	text, err := extractText(body)
	if err != nil {
		return nil, domain.NewPermanent(fmt.Errorf("%w: parse document.xml: %v", domain.ErrInvalidInput, err))
	}

	return &driven.NormaliseResult{Text: text}, nil
}

func readEntry(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", domain.ErrInvalidInput, name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", domain.ErrInvalidInput, name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s missing", domain.ErrInvalidInput, name)
}

// extractText walks the WordprocessingML token stream. Text runs (w:t) are
// concatenated, w:tab becomes a tab, w:br and w:cr a newline, and every
// closed paragraph (w:p) ends a line.
func extractText(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var b strings.Builder
	inText := false
	props := 0 // depth inside w:pPr / w:rPr, whose w:tab children are tab stops
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pPr", "rPr":
				props++
			case "t":
				inText = true
			case "tab":
				if props == 0 {
					b.WriteByte('\t')
				}
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "pPr", "rPr":
				props--
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}

	return strings.TrimSpace(b.String()), nil
}
