package service

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"clinic-calendar/internal/domain/entity"

	"github.com/go-pdf/fpdf"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const (
	// PDF layout, in millimetres on A4 portrait
	pdfTitle      = "Clinic Appointments"
	pdfFontSize   = 14
	pdfMarginX    = 20.0
	pdfTitleY     = 20.0
	pdfFirstLineY = 30.0
	pdfTopY       = 20.0
	pdfLineStep   = 10.0
	pdfMaxY       = 280.0

	// PDFDateLayout mirrors the en-US locale string the calendar UI shows
	PDFDateLayout = "1/2/2006, 3:04:05 PM"

	ICSProductID = "-//ClinicCare//Clinic Calendar//EN"
	icsUIDDomain = "clinic-calendar"

	xlsxSheet      = "Appointments"
	xlsxDateLayout = "2006-01-02 15:04"
)

var xlsxHeaders = []string{"#", "Title", "Patient", "Doctor", "Start", "End"}

// ExportService renders the appointment collection into downloadable files.
// Appointments are rendered in the order given.
type ExportService interface {
	RenderPDF(appointments []entity.Appointment) ([]byte, error)
	RenderICS(appointments []entity.Appointment) ([]byte, error)
	RenderXLSX(appointments []entity.Appointment) ([]byte, error)
}

type exportService struct {
	log      *logrus.Logger
	location *time.Location
	now      func() time.Time
}

func NewExportService(log *logrus.Logger, location *time.Location) ExportService {
	if location == nil {
		location = time.Local
	}
	return &exportService{
		log:      log,
		location: location,
		now:      time.Now,
	}
}

// pdfLine is one positioned line of the appointment listing
type pdfLine struct {
	Page int
	Y    float64
	Text string
}

// layoutPDFLines places one line per appointment, starting a new page
// whenever the next line would run past the bottom margin.
func layoutPDFLines(appointments []entity.Appointment, location *time.Location) []pdfLine {
	lines := make([]pdfLine, 0, len(appointments))
	page := 1
	y := pdfFirstLineY
	for i, a := range appointments {
		if y > pdfMaxY {
			page++
			y = pdfTopY
		}
		lines = append(lines, pdfLine{
			Page: page,
			Y:    y,
			Text: fmt.Sprintf("%d. %s | %s", i+1, a.Title, a.Start.In(location).Format(PDFDateLayout)),
		})
		y += pdfLineStep
	}
	return lines
}

func (s *exportService) RenderPDF(appointments []entity.Appointment) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(pdfTitle, true)
	pdf.SetFont("Helvetica", "", pdfFontSize)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.Text(pdfMarginX, pdfTitleY, pdfTitle)

	page := 1
	for _, line := range layoutPDFLines(appointments, s.location) {
		if line.Page != page {
			pdf.AddPage()
			page = line.Page
		}
		pdf.Text(pdfMarginX, line.Y, tr(line.Text))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		s.log.Warnf("Failed to render PDF export: %+v", err)
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderICS writes an iCalendar feed with one VEVENT per appointment
func (s *exportService) RenderICS(appointments []entity.Appointment) ([]byte, error) {
	var buf bytes.Buffer
	stamp := s.now().UTC().Format("20060102T150405Z")

	writeICSLine(&buf, "BEGIN:VCALENDAR")
	writeICSLine(&buf, "VERSION:2.0")
	writeICSLine(&buf, "PRODID:"+ICSProductID)
	writeICSLine(&buf, "CALSCALE:GREGORIAN")
	writeICSLine(&buf, "METHOD:PUBLISH")
	writeICSLine(&buf, "X-WR-CALNAME:"+pdfTitle)
	writeICSLine(&buf, "X-WR-TIMEZONE:"+s.location.String())

	for _, a := range appointments {
		writeICSLine(&buf, "BEGIN:VEVENT")
		writeICSLine(&buf, fmt.Sprintf("UID:%s@%s", a.ID, icsUIDDomain))
		writeICSLine(&buf, "DTSTAMP:"+stamp)
		writeICSLine(&buf, "DTSTART:"+a.Start.UTC().Format("20060102T150405Z"))
		writeICSLine(&buf, "DTEND:"+a.End.UTC().Format("20060102T150405Z"))
		writeICSLine(&buf, "SUMMARY:"+escapeICSText(a.Title))
		writeICSLine(&buf, "DESCRIPTION:"+escapeICSText(fmt.Sprintf("Patient: %s\nDoctor: %s", a.Patient, a.Doctor)))
		writeICSLine(&buf, "END:VEVENT")
	}

	writeICSLine(&buf, "END:VCALENDAR")
	return buf.Bytes(), nil
}

// icsLineOctets is the longest content line allowed before folding
const icsLineOctets = 75

// writeICSLine folds line into chunks of at most 75 octets, each continuation
// starting with a single space, without splitting a UTF-8 sequence.
func writeICSLine(buf *bytes.Buffer, line string) {
	limit := icsLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		buf.WriteString(line[:cut])
		buf.WriteString("\r\n ")
		line = line[cut:]
		// the leading space counts towards the limit
		limit = icsLineOctets - 1
	}
	buf.WriteString(line)
	buf.WriteString("\r\n")
}

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

func escapeICSText(s string) string {
	return icsEscaper.Replace(s)
}

// RenderXLSX writes a single sheet with a header row and one row per appointment
func (s *exportService) RenderXLSX(appointments []entity.Appointment) ([]byte, error) {
	file := excelize.NewFile()
	defer func() {
		if err := file.Close(); err != nil {
			s.log.Warnf("Failed to close spreadsheet: %+v", err)
		}
	}()

	if err := file.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, err
	}
	if err := file.SetSheetRow(xlsxSheet, "A1", &xlsxHeaders); err != nil {
		return nil, err
	}

	for i, a := range appointments {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			i + 1,
			a.Title,
			a.Patient,
			a.Doctor,
			a.Start.In(s.location).Format(xlsxDateLayout),
			a.End.In(s.location).Format(xlsxDateLayout),
		}
		if err := file.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		s.log.Warnf("Failed to render XLSX export: %+v", err)
		return nil, err
	}
	return buf.Bytes(), nil
}
