package leads

import (
	"encoding/csv"
	"io"
	"time"
)

var csvHeader = []string{
	"Created At", "Full Name", "Email", "Phone", "IG Username",
	"IG User ID", "Campaign", "Source", "Notes",
}

// WriteCSV writes leads as a spreadsheet-friendly export, header first.
func WriteCSV(w io.Writer, leads []*Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, lead := range leads {
		record := []string{
			lead.CreatedAt.UTC().Format(time.RFC3339),
			lead.FullName,
			lead.Email,
			Value(lead.Phone),
			Value(lead.IGUsername),
			Value(lead.IGUserID),
			Value(lead.Campaign),
			lead.Source,
			Value(lead.Notes),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
