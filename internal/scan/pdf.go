package scan

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFInspector verifies that a .pdf upload is a structurally valid document.
// A file that carries the PDF magic bytes but cannot be parsed is a common
// disguise for mislabeled or malicious content, so such files are flagged
// rather than committed. Files with other extensions pass untouched.
type PDFInspector struct{}

// Scan parses the document's cross-reference structure and page tree.
func (PDFInspector) Scan(ctx context.Context, path string) (Result, error) {
	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		return Result{Verdict: VerdictClean}, nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read pdf: %w", err)
	}
	if err := parsePDF(data); err != nil {
		return Result{
			Verdict: VerdictInfected,
			Detail:  fmt.Sprintf("pdf structure check failed: %v", err),
		}, nil
	}
	return Result{Verdict: VerdictClean}, nil
}

// parsePDF isolates the third-party parser, which panics on some malformed
// inputs instead of returning an error.
func parsePDF(data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed document: %v", r)
		}
	}()
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return err
	}
	for page := 1; page <= doc.NumPage(); page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		// Touching the content streams forces the objects to decode.
		if _, err := p.GetPlainText(nil); err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}
	}
	return nil
}
