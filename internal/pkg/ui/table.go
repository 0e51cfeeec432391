package ui

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/gosuri/uitable"

	"github.com/receiptexporter/receiptexporter/internal/pkg/sink"
	"github.com/receiptexporter/receiptexporter/pkg/models"
)

func newTable() *uitable.Table {
	table := uitable.New()
	table.MaxColWidth = 80
	table.Wrap = true
	return table
}

// StatusTable renders a persisted queue.
func StatusTable(cp *models.Checkpoint) string {
	table := newTable()

	table.AddRow("  - Progress:", fmt.Sprintf("%d/%d", cp.Index, cp.Total))
	table.AddRow("  - Succeeded:", cp.Success)
	table.AddRow("  - Failed:", cp.Fail)
	if cp.Current != nil {
		table.AddRow("  - In flight:", fmt.Sprintf("%s %s (%s)", cp.Current.Order.Date, cp.Current.GetIdentifier(), cp.Current.GetLabel()))
	}
	if cp.Index < len(cp.Items) {
		next := cp.Items[cp.Index]
		table.AddRow("  - Next:", fmt.Sprintf("%s %s (%s)", next.Order.Date, next.GetIdentifier(), next.GetLabel()))
	}

	return table.String()
}

// ListTable renders the saved documents.
func ListTable(entries []sink.Entry) string {
	table := newTable()
	table.AddRow("NAME", "SIZE", "PAGES", "MODIFIED")

	for _, e := range entries {
		pages := "-"
		if e.Pages > 0 {
			pages = fmt.Sprint(e.Pages)
		}
		table.AddRow(e.Name, humanize.Bytes(uint64(e.Size)), pages, humanize.Time(e.ModTime))
	}

	return table.String()
}

// StatsTable renders a stats map sorted by key.
func StatsTable(m map[string]interface{}) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := newTable()
	for _, k := range keys {
		table.AddRow("  - "+k+":", m[k])
	}

	return table.String()
}
