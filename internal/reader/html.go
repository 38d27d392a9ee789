package reader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tabload/internal/table"
)

// ReadHTML extracts the first <table> element of an HTML document into a
// RawTable. The header comes from the table's <th> cells when present,
// otherwise from the first row. Rows are read in DOM order.
func ReadHTML(data []byte) (table.RawTable, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return table.RawTable{}, fmt.Errorf("parse html: %w", err)
	}

	tbl := doc.Find("table").First()
	if tbl.Length() == 0 {
		return table.RawTable{}, ErrEmpty
	}

	var header []string
	tbl.Find("tr").First().Find("th").Each(func(_ int, sel *goquery.Selection) {
		header = append(header, strings.TrimSpace(sel.Text()))
	})

	var rows [][]any
	tbl.Find("tr").Each(func(i int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() == 0 {
			// header row or spacer
			return
		}

		vals := make([]string, 0, cells.Length())
		cells.Each(func(_ int, td *goquery.Selection) {
			vals = append(vals, strings.TrimSpace(td.Text()))
		})

		// No <th> header: the first cell-bearing row becomes the header.
		if header == nil {
			header = vals
			return
		}

		row := make([]any, len(vals))
		for j, v := range vals {
			row[j] = v
		}
		rows = append(rows, row)
	})

	if header == nil {
		return table.RawTable{}, ErrEmpty
	}

	return table.New(header, rows), nil
}
