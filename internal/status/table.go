package status

import (
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

const emptyCellConstant = "-"

var tableHeaders = []string{"NAME", "REF", "STATE", "BRANCH", "HEAD", "ORIGIN", "PUSH"}

// Render writes entries as a markdown table.
func Render(writer io.Writer, entries []Entry) error {
	table := tablewriter.NewTable(writer,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
				Formatting: tw.CellFormatting{AutoFormat: tw.Off},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithHeader(tableHeaders),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{Left: tw.On, Top: tw.Off, Right: tw.On, Bottom: tw.Off},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)

	for _, entry := range entries {
		row := []string{
			entry.Name,
			entry.Ref,
			entry.State.String(),
			cell(entry.Branch),
			cell(entry.Head),
			cell(entry.FetchURL),
			cell(entry.PushURL),
		}
		if appendError := table.Append(row); appendError != nil {
			return appendError
		}
	}
	return table.Render()
}

func cell(value string) string {
	if len(value) == 0 {
		return emptyCellConstant
	}
	return value
}
