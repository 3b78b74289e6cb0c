package roster

import (
	"fmt"
	"io"
	"time"

	"attendex/src-server/entity"

	"github.com/xuri/excelize/v2"
)

const (
	rosterSheet     = "Roster"
	attendanceSheet = "Attendance"
	timeLayout      = "2006-01-02 15:04"
)

// Export is everything written to a roster workbook.
type Export struct {
	Event      entity.Event
	Attributes []entity.Attribute
	Attendees  []entity.Attendee
	// optional; adds an Attendance sheet
	Attendance []entity.AttendanceRecord
	Location   *time.Location
}

func (e Export) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E0E7FF"}},
	})
	if err != nil {
		return fmt.Errorf("(Export).WriteXLSX: %w", err)
	}

	if err := f.SetSheetName(f.GetSheetName(0), rosterSheet); err != nil {
		return fmt.Errorf("(Export).WriteXLSX: %w", err)
	}
	columns := []any{"Identifier", "First name", "Last name", "Email"}
	for _, a := range e.Attributes {
		columns = append(columns, a.Name)
	}
	rows := make([][]any, 0, len(e.Attendees))
	for _, a := range e.Attendees {
		row := []any{a.Identifier, a.FirstName, a.LastName, a.Email}
		for _, attr := range e.Attributes {
			row = append(row, a.Attributes[attr.Name])
		}
		rows = append(rows, row)
	}
	if err := writeSheet(f, rosterSheet, columns, rows, header); err != nil {
		return fmt.Errorf("(Export).WriteXLSX: %w", err)
	}

	if e.Attendance != nil {
		if _, err := f.NewSheet(attendanceSheet); err != nil {
			return fmt.Errorf("(Export).WriteXLSX: %w", err)
		}
		loc := e.Location
		if loc == nil {
			loc = time.UTC
		}
		rows := make([][]any, 0, len(e.Attendance))
		for _, r := range e.Attendance {
			rows = append(rows, []any{r.Identifier, r.Name, formatTime(r.ArrivedAt, loc), formatTime(r.DepartedAt, loc), r.Punctuality})
		}
		if err := writeSheet(f, attendanceSheet, []any{"Identifier", "Name", "Arrived", "Departed", "Punctuality"}, rows, header); err != nil {
			return fmt.Errorf("(Export).WriteXLSX: %w", err)
		}
	}

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   e.Event.Name + " roster",
		Creator: "AttendEx",
	}); err != nil {
		return fmt.Errorf("(Export).WriteXLSX: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("(Export).WriteXLSX: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, columns []any, rows [][]any, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &columns); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return err
	}
	if err := f.AutoFilter(sheet, "A1:"+last, nil); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func formatTime(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.In(loc).Format(timeLayout)
}
