package service

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/MagicSoftDev0717/send-contract-toemail-render/model"
	"github.com/MagicSoftDev0717/send-contract-toemail-render/pkg/pdftest"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// markPlacement matches the form XObject placement pdfcpu writes for a stamp.
var markPlacement = regexp.MustCompile(`q\s+[-\d.]+\s+[-\d.]+\s+[-\d.]+\s+[-\d.]+\s+([-\d.]+)\s+([-\d.]+)\s+cm\s+/\w+\s+gs\s+/\w+\s+Do\s+Q`)

func pageContent(t *testing.T, data []byte, pageNr int) string {
	t.Helper()
	ctx, err := api.ReadContext(bytes.NewReader(data), pdfmodel.NewDefaultConfiguration())
	if err != nil {
		t.Fatalf("ReadContext failed: %v", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		t.Fatalf("EnsurePageCount failed: %v", err)
	}
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		t.Fatalf("ExtractPageContent(%d) failed: %v", pageNr, err)
	}
	if r == nil {
		return ""
	}
	content, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("Reading page %d content failed: %v", pageNr, err)
	}
	return string(content)
}

// statusMarks returns the lower-left corner of every stamp on the page.
func statusMarks(t *testing.T, data []byte, pageNr int) []model.Point {
	t.Helper()
	var marks []model.Point
	for _, m := range markPlacement.FindAllStringSubmatch(pageContent(t, data, pageNr), -1) {
		x, errX := strconv.ParseFloat(m[1], 64)
		y, errY := strconv.ParseFloat(m[2], 64)
		if errX != nil || errY != nil {
			t.Fatalf("Unparseable stamp placement %q", m[0])
		}
		marks = append(marks, model.Point{X: x, Y: y})
	}
	return marks
}

// requireSingleMark fails unless page 2 carries exactly one stamp, at want.
func requireSingleMark(t *testing.T, data []byte, want model.Point) {
	t.Helper()
	marks := statusMarks(t, data, statusPage)
	if len(marks) != 1 {
		t.Fatalf("Expected exactly one mark on page %d, got %v", statusPage, marks)
	}
	if marks[0] != want {
		t.Errorf("Expected mark at %v, got %v", want, marks[0])
	}
}

func TestPDFAnnotatorPageCount(t *testing.T) {
	a := NewPDFAnnotator()

	for _, pages := range []int{1, 2, 5} {
		got, err := a.PageCount(pdftest.Build(pages))
		if err != nil {
			t.Fatalf("PageCount(%d pages) failed: %v", pages, err)
		}
		if got != pages {
			t.Errorf("Expected %d pages, got %d", pages, got)
		}
	}

	_, err := a.PageCount([]byte("not a pdf"))
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("Expected validation error for garbage input, got %v", err)
	}
}

func TestPDFAnnotatorAnnotate(t *testing.T) {
	a := NewPDFAnnotator()

	tests := []struct {
		status model.Status
		want   model.Point
	}{
		{model.StatusAccept, model.Point{X: 50, Y: 680}},
		{model.StatusReject, model.Point{X: 100, Y: 680}},
		{model.StatusCounterOffer, model.Point{X: 150, Y: 680}},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			input := pdftest.Build(2)
			before := append([]byte(nil), input...)

			out, err := a.Annotate(input, tt.status)
			if err != nil {
				t.Fatalf("Annotate failed: %v", err)
			}
			if !bytes.Equal(input, before) {
				t.Error("Annotate must not modify its input")
			}
			if marks := statusMarks(t, input, statusPage); len(marks) != 0 {
				t.Errorf("Expected a blank input document, got marks %v", marks)
			}

			pages, err := a.PageCount(out)
			if err != nil {
				t.Fatalf("Annotated output is not a valid PDF: %v", err)
			}
			if pages != 2 {
				t.Errorf("Expected page count to stay 2, got %d", pages)
			}

			requireSingleMark(t, out, tt.want)

			if got, want := pageContent(t, out, 1), pageContent(t, input, 1); got != want {
				t.Errorf("Expected page 1 untouched, content %q became %q", want, got)
			}
		})
	}
}

func TestPDFAnnotatorStampsLaterPages(t *testing.T) {
	a := NewPDFAnnotator()

	out, err := a.Annotate(pdftest.Build(4), model.StatusReject)
	if err != nil {
		t.Fatalf("Annotate failed: %v", err)
	}

	requireSingleMark(t, out, model.Point{X: 100, Y: 680})
	for _, pageNr := range []int{1, 3, 4} {
		if marks := statusMarks(t, out, pageNr); len(marks) != 0 {
			t.Errorf("Expected no mark on page %d, got %v", pageNr, marks)
		}
	}
}

func TestPDFAnnotatorRejectsSinglePage(t *testing.T) {
	a := NewPDFAnnotator()

	_, err := a.Annotate(pdftest.Build(1), model.StatusAccept)
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("Expected validation error for single page PDF, got %v", err)
	}
}

func TestPDFAnnotatorRejectsUnknownStatus(t *testing.T) {
	a := NewPDFAnnotator()

	_, err := a.Annotate(pdftest.Build(2), model.Status("Maybe"))
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("Expected validation error for unknown status, got %v", err)
	}
}

func TestMarkDescription(t *testing.T) {
	tests := []struct {
		status model.Status
		offset string
	}{
		{model.StatusAccept, "offset:50 680"},
		{model.StatusReject, "offset:100 680"},
		{model.StatusCounterOffer, "offset:150 680"},
	}

	for _, tt := range tests {
		pos, _ := tt.status.Position()
		desc := markDescription(pos)
		if !strings.Contains(desc, tt.offset) {
			t.Errorf("%s: expected %q in %q", tt.status, tt.offset, desc)
		}
		if !strings.Contains(desc, "position:bl") || !strings.Contains(desc, "fillcolor:#000000") {
			t.Errorf("%s: expected bottom-left anchor and black fill in %q", tt.status, desc)
		}
	}

	if got := markText(model.StatusCounterOffer); got != "• CounterOffer" {
		t.Errorf("Unexpected mark text %q", got)
	}
}
