// Package pdftext extracts plain text from uploaded study material.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrEmptyUpload indicates a zero-length upload.
var ErrEmptyUpload = errors.New("pdftext: empty upload")

// ErrUnsupportedFormat indicates the upload is neither a PDF nor plain text.
var ErrUnsupportedFormat = errors.New("pdftext: unsupported file format")

// ErrNoText indicates the document yielded no usable text.
var ErrNoText = errors.New("pdftext: no extractable text")

var pdfMagic = []byte("%PDF-")

// FromUpload extracts text from an uploaded file. PDFs are detected by magic
// bytes regardless of the declared mime type; anything that looks like plain
// text passes through with whitespace collapsed.
func FromUpload(filename, mimeType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyUpload
	}
	if bytes.HasPrefix(data, pdfMagic) {
		return extractPDF(data)
	}
	if claimsPDF(filename, mimeType) {
		return "", fmt.Errorf("pdftext: %q declared as pdf but missing pdf header", filename)
	}
	if isProbablyText(data) {
		text := collapseWhitespace(string(data))
		if text == "" {
			return "", ErrNoText
		}
		return text, nil
	}
	return "", ErrUnsupportedFormat
}

func claimsPDF(filename, mimeType string) bool {
	if strings.Contains(strings.ToLower(mimeType), "pdf") {
		return true
	}
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdftext: open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdftext: read pdf text: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdftext: drain pdf text: %w", err)
	}
	text := collapseWhitespace(string(raw))
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// isProbablyText inspects the leading bytes for binary markers.
func isProbablyText(data []byte) bool {
	sample := data
	if len(sample) > 4096 {
		sample = sample[:4096]
	}
	if !utf8.Valid(sample) {
		return false
	}
	for _, b := range sample {
		if b == 0 {
			return false
		}
	}
	return true
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
