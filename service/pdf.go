package service

import (
	"bytes"
	"fmt"

	"github.com/MagicSoftDev0717/send-contract-toemail-render/model"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const (
	// statusPage is the page that carries the decision marks.
	statusPage     = 2
	markFontName   = "Helvetica"
	markFontPoints = 12
)

func init() {
	// pdfcpu otherwise installs a config dir under the user's home on first use
	pdfmodel.ConfigPath = "disable"
}

// PDFAnnotator stamps contract statuses onto PDFs.
type PDFAnnotator struct{}

func NewPDFAnnotator() *PDFAnnotator {
	return &PDFAnnotator{}
}

// PageCount returns the number of pages; unreadable input is a validation error.
func (a *PDFAnnotator) PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), pdfmodel.NewDefaultConfiguration())
	if err != nil {
		return 0, &model.ValidationError{Message: "Invalid PDF document."}
	}
	return n, nil
}

// Annotate draws "• <status>" on page 2 at the status's fixed position and
// returns the new document. The input is left untouched.
func (a *PDFAnnotator) Annotate(data []byte, status model.Status) ([]byte, error) {
	pos, ok := status.Position()
	if !ok {
		return nil, model.Invalid(fmt.Sprintf("Invalid status %q.", status))
	}

	pages, err := a.PageCount(data)
	if err != nil {
		return nil, err
	}
	if pages < statusPage {
		return nil, model.Invalid(fmt.Sprintf("Contract PDF must have at least %d pages, got %d.", statusPage, pages))
	}

	wm, err := api.TextWatermark(markText(status), markDescription(pos), true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("failed to build status mark: %w", err)
	}

	var out bytes.Buffer
	pageSel := []string{fmt.Sprint(statusPage)}
	if err := api.AddWatermarks(bytes.NewReader(data), &out, pageSel, wm, pdfmodel.NewDefaultConfiguration()); err != nil {
		return nil, fmt.Errorf("failed to stamp status: %w", err)
	}
	return out.Bytes(), nil
}

func markText(status model.Status) string {
	return "• " + string(status)
}

// markDescription anchors the text box's lower-left corner at pos.
func markDescription(pos model.Point) string {
	return fmt.Sprintf(
		"fontname:%s, points:%d, position:bl, offset:%g %g, scalefactor:1 abs, rotation:0, fillcolor:#000000, opacity:1",
		markFontName, markFontPoints, pos.X, pos.Y,
	)
}
