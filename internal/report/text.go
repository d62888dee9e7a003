package report

import (
	"fmt"
	"strings"
)

// GenerateText renders diagnostics as one line per finding, the way
// most linters print to a terminal.
func GenerateText(diagnostics []Diagnostic) string {
	var buf strings.Builder

	for _, d := range diagnostics {
		buf.WriteString(fmt.Sprintf("%s:%d:%d: %s: %s\n",
			d.Location.File, d.Location.Line, d.Location.Column, d.Kind, d.Message))
	}

	return buf.String()
}

// GenerateTSV renders diagnostics as tab-separated rows with a header,
// for spreadsheet or scripting consumption.
func GenerateTSV(diagnostics []Diagnostic) string {
	var buf strings.Builder

	buf.WriteString("Kind\tFile\tLine\tColumn\tMessage\n")
	for _, d := range diagnostics {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%d\t%d\t%s\n",
			d.Kind, d.Location.File, d.Location.Line, d.Location.Column, d.Message))
	}

	return buf.String()
}
