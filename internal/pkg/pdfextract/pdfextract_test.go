package pdfextract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF([]byte("%PDF-1.7\n...")))
	assert.True(t, IsPDF([]byte("\n%PDF-1.4")))
	assert.False(t, IsPDF([]byte("plain text")))
	assert.False(t, IsPDF(nil))
}

func TestExtractPagesRejectsNonPDF(t *testing.T) {
	_, err := ExtractPages([]byte("hello"))
	assert.ErrorIs(t, err, ErrNotPDF)

	pages, err := ExtractPages(nil)
	assert.NoError(t, err)
	assert.Empty(t, pages)
}
