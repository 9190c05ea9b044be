package report

import (
	"html/template"
	"io"

	"github.com/richard-senior/htft/pkg/util/htft"
)

var htmlTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Analysis result</title>
<style>
table.htft { border-collapse: collapse; }
table.htft th, table.htft td { background-color: lightblue; color: black; border: 1px solid white; padding: 2px 6px; }
</style>
</head>
<body>
<h2>Analysis result</h2>
<p>{{.Summary}}</p>
<table class="htft">
<thead>
<tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr>
</thead>
<tbody>
{{range .Rows}}<tr><td>{{.Label}}</td>{{range .Cells}}<td data-count="{{.Count}}">{{.Display}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
</body>
</html>
`))

type htmlRow struct {
	Label string
	Cells []htft.Cell
}

// HTML writes the report as a standalone HTML page
func HTML(w io.Writer, r *htft.Report) error {
	rows := make([]htmlRow, 0, len(r.Rows))
	for _, row := range r.Rows {
		rows = append(rows, htmlRow{Label: row.Label, Cells: r.Cells(row)})
	}
	return htmlTemplate.Execute(w, struct {
		Summary string
		Header  []string
		Rows    []htmlRow
	}{Summary(r), r.Header(), rows})
}
