package docs

import (
	"bytes"
	"errors"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrNoText = errors.New("document contains no extractable text")

// ExtractPDFText pulls the plain text out of the PDF at path. Scanned PDFs
// with no text layer come back as ErrNoText; those need the OCR path.
func ExtractPDFText(path string) (string, int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	var buf bytes.Buffer
	rd, err := r.GetPlainText()
	if err != nil {
		return "", 0, err
	}
	if _, err := buf.ReadFrom(rd); err != nil {
		return "", 0, err
	}

	text := strings.TrimSpace(buf.String())
	if text == "" {
		return "", r.NumPage(), ErrNoText
	}
	return text, r.NumPage(), nil
}
