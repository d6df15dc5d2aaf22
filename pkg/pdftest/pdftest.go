// Package pdftest builds small, valid PDF documents for tests.
package pdftest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	model.ConfigPath = "disable"
}

type layout struct {
	Paper string          `json:"paper"`
	Pages map[string]page `json:"pages"`
}

type page struct {
	Content content `json:"content"`
}

type content struct {
	Text []textBox `json:"text"`
}

type textBox struct {
	Value  string `json:"value"`
	Anchor string `json:"anchor"`
	Font   font   `json:"font"`
}

type font struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// Build returns a US Letter PDF with the given number of pages, each
// carrying a "Page N" label. It panics if pdfcpu rejects the layout.
func Build(pages int) []byte {
	l := layout{Paper: "Letter", Pages: make(map[string]page, pages)}
	for i := 1; i <= pages; i++ {
		l.Pages[strconv.Itoa(i)] = page{Content: content{Text: []textBox{{
			Value:  fmt.Sprintf("Page %d", i),
			Anchor: "center",
			Font:   font{Name: "Helvetica", Size: 12},
		}}}}
	}

	spec, err := json.Marshal(l)
	if err != nil {
		panic(err)
	}

	var out bytes.Buffer
	if err := api.Create(nil, bytes.NewReader(spec), &out, model.NewDefaultConfiguration()); err != nil {
		panic(fmt.Sprintf("pdftest: create %d pages: %v", pages, err))
	}
	return out.Bytes()
}
