package export

import (
	"fmt"
	"io"
	"time"

	"detailing/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

// BookingHeader is the column order of BookingRow.
var BookingHeader = []string{
	"ID", "Status", "Date", "Time", "Service", "Customer", "Contact method", "Email", "Phone",
	"Vehicle", "Address", "Address line 2", "City", "State", "Postcode", "Special instructions",
	"Newsletter", "Created at",
}

// BookingRow flattens a booking for spreadsheets.
func BookingRow(b *models.Booking, catalog *models.Catalog) []interface{} {
	newsletter := "No"
	if b.Newsletter {
		newsletter = "Yes"
	}
	return []interface{}{
		b.ID,
		string(b.Status),
		b.ServiceDate,
		b.ServiceTime,
		catalog.ServiceDisplay(b.ServiceType),
		b.CustomerName,
		string(b.ContactMethod),
		b.Email,
		b.Phone,
		b.VehicleType,
		b.Address,
		b.AddressLine2,
		b.City,
		b.State,
		b.Postcode,
		b.SpecialInstructions,
		newsletter,
		b.CreatedAt.UTC().Format(time.DateTime),
	}
}

// Writer builds a bookings workbook.
type Writer struct {
	file *excelize.File
	row  int
}

func NewWriter() *Writer {
	f := excelize.NewFile()
	_ = f.SetSheetName("Sheet1", sheetName)
	return &Writer{file: f, row: 1}
}

// WriteHeader writes column headers in bold and freezes the header row.
func (w *Writer) WriteHeader(columns []string) error {
	if err := w.writeRow(toRow(columns)); err != nil {
		return err
	}

	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		end, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = w.file.SetCellStyle(sheetName, "A1", end, style)
	}
	return w.file.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// WriteRow writes a data row.
func (w *Writer) WriteRow(values []interface{}) error {
	return w.writeRow(values)
}

func (w *Writer) writeRow(values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", w.row, err)
	}
	w.row++
	return nil
}

// Save writes the workbook to wr.
func (w *Writer) Save(wr io.Writer) error {
	return w.file.Write(wr)
}

// Close releases resources.
func (w *Writer) Close() error {
	return w.file.Close()
}

// WriteBookings renders bookings as an .xlsx workbook into wr.
func WriteBookings(wr io.Writer, bookings []models.Booking, catalog *models.Catalog) error {
	w := NewWriter()
	defer w.Close()

	if err := w.WriteHeader(BookingHeader); err != nil {
		return err
	}
	for i := range bookings {
		if err := w.WriteRow(BookingRow(&bookings[i], catalog)); err != nil {
			return err
		}
	}
	return w.Save(wr)
}

func toRow(columns []string) []interface{} {
	row := make([]interface{}, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	return row
}
