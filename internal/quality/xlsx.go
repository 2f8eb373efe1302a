package quality

import (
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

var summaryHeader = []string{
	"Type", "Total", "Complete", "Incomplete", "Missing name", "Missing contact",
	"Invalid email", "Invalid phone", "Duplicated", "Duplicate groups", "Fetch error",
}

var issuesHeader = []string{"ID", "Name", "Email", "Phone", "Company", "Issues"}

// WriteXLSX writes a workbook with a summary sheet and one issues sheet per
// resource type.
func WriteXLSX(rep EnvironmentReport, w io.Writer) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "xlsx: add summary sheet")
	}
	addRow(summary, "Environment", string(rep.Environment))
	addRow(summary, "Generated at", rep.GeneratedAt.UTC().Format("2006-01-02 15:04:05 MST"))
	addRow(summary, summaryHeader...)
	for _, r := range rep.Reports {
		addRow(summary,
			string(r.Type),
			strconv.Itoa(r.Total),
			strconv.Itoa(r.Complete),
			strconv.Itoa(r.Incomplete),
			strconv.Itoa(r.MissingName),
			strconv.Itoa(r.MissingContact),
			strconv.Itoa(r.InvalidEmail),
			strconv.Itoa(r.InvalidPhone),
			strconv.Itoa(r.Duplicated),
			strconv.Itoa(len(r.Groups)),
			rep.FetchErrors[r.Type],
		)
	}

	for _, r := range rep.Reports {
		sheet, err := f.AddSheet(string(r.Type))
		if err != nil {
			return eris.Wrapf(err, "xlsx: add %s sheet", r.Type)
		}
		addRow(sheet, issuesHeader...)
		for _, rec := range r.Records {
			issues := make([]string, len(rec.Issues))
			for i, is := range rec.Issues {
				issues[i] = string(is)
			}
			addRow(sheet,
				rec.Ref.ID.String(),
				rec.Contact.Name,
				rec.Contact.Email,
				rec.Contact.Phone,
				rec.Contact.Company,
				strings.Join(issues, ", "),
			)
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "xlsx: write workbook")
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
