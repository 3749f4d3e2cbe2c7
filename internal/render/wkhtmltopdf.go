package render

import (
	"context"
	"fmt"
	"strings"

	wkhtmltopdf "github.com/SebastiaanKlippert/go-wkhtmltopdf"
)

// Renderer converts a message payload into a PDF on disk and returns
// the output path. Implementations report content-level rejections as
// *ContentError; any other error is fatal to the batch.
type Renderer interface {
	Render(ctx context.Context, content, titleHint string) (string, error)
}

// PDFRenderer renders HTML or plain text to PDF through the
// wkhtmltopdf engine.
type PDFRenderer struct {
	outputDir string
	opts      Options
}

// NewPDFRenderer returns a renderer writing into outputDir with the
// given engine options. The directory must exist before the first
// render; the run driver creates it.
func NewPDFRenderer(outputDir string, opts Options) *PDFRenderer {
	return &PDFRenderer{outputDir: outputDir, opts: opts}
}

// Render writes the PDF for content under the sanitized, truncated
// title and returns its path. Engine failures caused by the content
// come back as *ContentError; everything else propagates unchanged.
// A partially written file may remain on failure.
func (r *PDFRenderer) Render(ctx context.Context, content, titleHint string) (string, error) {
	outputPath := OutputPath(r.outputDir, titleHint)

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return "", fmt.Errorf("initializing wkhtmltopdf: %w", err)
	}

	if r.opts.PageSize != "" {
		pdfg.PageSize.Set(r.opts.PageSize)
	}
	if r.opts.Orientation != "" {
		pdfg.Orientation.Set(r.opts.Orientation)
	}
	if r.opts.MarginTop != nil {
		pdfg.MarginTop.Set(*r.opts.MarginTop)
	}
	if r.opts.MarginBottom != nil {
		pdfg.MarginBottom.Set(*r.opts.MarginBottom)
	}
	if r.opts.MarginLeft != nil {
		pdfg.MarginLeft.Set(*r.opts.MarginLeft)
	}
	if r.opts.MarginRight != nil {
		pdfg.MarginRight.Set(*r.opts.MarginRight)
	}
	if r.opts.DPI > 0 {
		pdfg.Dpi.Set(r.opts.DPI)
	}
	if r.opts.Grayscale {
		pdfg.Grayscale.Set(true)
	}

	page := wkhtmltopdf.NewPageReader(strings.NewReader(content))
	if r.opts.Zoom > 0 {
		page.Zoom.Set(r.opts.Zoom)
	}
	if r.opts.Encoding != "" {
		page.Encoding.Set(r.opts.Encoding)
	}
	if r.opts.DisableJavascript {
		page.DisableJavascript.Set(true)
	}
	pdfg.AddPage(page)

	if err := pdfg.CreateContext(ctx); err != nil {
		return "", classify(err, titleHint)
	}

	if err := pdfg.WriteFile(outputPath); err != nil {
		return "", fmt.Errorf("writing %s: %w", outputPath, err)
	}

	return outputPath, nil
}
