// Package extract turns uploaded files into plain-text documents.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xhad/docqa/internal/models"
)

// ErrUnreadablePDF is returned when a file cannot be parsed as a PDF.
var ErrUnreadablePDF = errors.New("unreadable PDF")

// PDFFile extracts the text of the PDF at path. filename is the name the
// document is stored under.
func PDFFile(path, filename string) (models.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Document{}, fmt.Errorf("error opening %s: %w", filename, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return models.Document{}, fmt.Errorf("error reading %s: %w", filename, err)
	}

	return PDF(f, info.Size(), filename)
}

// PDF extracts the text of a PDF held by r. Pages are separated by a newline.
func PDF(r io.ReaderAt, size int64, filename string) (doc models.Document, err error) {
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %s: %v", ErrUnreadablePDF, filename, p)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return models.Document{}, fmt.Errorf("%w: %s: %v", ErrUnreadablePDF, filename, err)
	}

	var pages []string
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := page.Font(name)
				fonts[name] = &font
			}
		}

		text, err := page.GetPlainText(fonts)
		if err != nil {
			return models.Document{}, fmt.Errorf("%w: %s page %d: %v", ErrUnreadablePDF, filename, i, err)
		}
		pages = append(pages, text)
	}

	return models.Document{
		Filename: filename,
		Text:     strings.Join(pages, "\n"),
		Metadata: map[string]interface{}{
			"pages": reader.NumPage(),
		},
	}, nil
}

// PDFBytes is PDF for in-memory content.
func PDFBytes(data []byte, filename string) (models.Document, error) {
	return PDF(bytes.NewReader(data), int64(len(data)), filename)
}
