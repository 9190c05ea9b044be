package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/richard-senior/htft/pkg/util/htft"
)

// Text writes the report as aligned plain text columns
func Text(w io.Writer, r *htft.Report) error {
	if _, err := fmt.Fprintln(w, Summary(r)); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(r.Header(), "\t"))
	for _, record := range r.Records() {
		fmt.Fprintln(tw, strings.Join(record, "\t"))
	}
	return tw.Flush()
}
