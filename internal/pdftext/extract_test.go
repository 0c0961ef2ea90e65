package pdftext

import (
	"errors"
	"testing"
)

func TestFromUploadPlainText(t *testing.T) {
	text, err := FromUpload("notes.txt", "text/plain", []byte("  alpha\n\nbeta\tgamma  "))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "alpha beta gamma" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestFromUploadEmpty(t *testing.T) {
	if _, err := FromUpload("notes.txt", "text/plain", nil); !errors.Is(err, ErrEmptyUpload) {
		t.Fatalf("expected ErrEmptyUpload, got %v", err)
	}
}

func TestFromUploadClaimsPDFWithoutHeader(t *testing.T) {
	if _, err := FromUpload("doc.pdf", "application/pdf", []byte("not a pdf")); err == nil {
		t.Fatalf("expected error for pdf without header")
	}
}

func TestFromUploadBinaryRejected(t *testing.T) {
	data := []byte{0x00, 0x01, 0x02, 0xff, 0xfe}
	if _, err := FromUpload("blob.bin", "application/octet-stream", data); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestFromUploadCorruptPDF(t *testing.T) {
	data := []byte("%PDF-1.7 garbage that is not a real document")
	if _, err := FromUpload("doc.pdf", "application/pdf", data); err == nil {
		t.Fatalf("expected error for corrupt pdf")
	}
}

func TestIsProbablyText(t *testing.T) {
	if !isProbablyText([]byte("plain utf8 text")) {
		t.Fatalf("expected text to be detected")
	}
	if isProbablyText([]byte{0x89, 'P', 'N', 'G', 0x00}) {
		t.Fatalf("expected binary to be rejected")
	}
}
