package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders a case packet into a printable PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates the response packet: cover page, per-section responses,
// evidence checklist, and exhibit index.
func (e *PDFExporter) Render(packet Packet) ([]byte, error) {
	if packet.CaseNumber == "" {
		return nil, fmt.Errorf("packet requires a case number")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)

	e.renderCover(pdf, packet)
	e.renderSections(pdf, packet.Sections)
	e.renderChecklist(pdf, packet.Checklist)
	e.renderExhibits(pdf, packet.Exhibits)

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render packet pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) renderCover(pdf *gofpdf.Fpdf, packet Packet) {
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "RESPONSE TO REQUEST FOR EVIDENCE", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 11)
	rows := [][2]string{
		{"Case Number", packet.CaseNumber},
		{"USCIS Receipt Number", packet.ReceiptNumber},
		{"Visa Classification", packet.VisaType},
		{"Petitioner", packet.PetitionerName},
		{"Beneficiary", packet.BeneficiaryName},
		{"Response Deadline", packet.Deadline},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(60, 8, row[0], "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 8, row[1], "1", 1, "", false, 0, "")
	}
}

func (e *PDFExporter) renderSections(pdf *gofpdf.Fpdf, sections []PacketSection) {
	for _, section := range sections {
		pdf.AddPage()
		pdf.SetFont("Arial", "B", 13)
		title := section.Title
		if title == "" {
			title = section.SectionType
		}
		pdf.CellFormat(0, 9, title, "", 1, "", false, 0, "")

		if section.Summary != "" {
			pdf.SetFont("Arial", "I", 10)
			pdf.MultiCell(0, 6, section.Summary, "", "", false)
			pdf.Ln(2)
		}

		pdf.SetFont("Arial", "", 11)
		body := section.Response
		if body == "" {
			body = "[response pending]"
		}
		pdf.MultiCell(0, 6, body, "", "", false)
	}
}

func (e *PDFExporter) renderChecklist(pdf *gofpdf.Fpdf, items []PacketChecklistItem) {
	if len(items) == 0 {
		return
	}
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 9, "Evidence Checklist", "", 1, "", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(110, 8, "Document", "1", 0, "", false, 0, "")
	pdf.CellFormat(40, 8, "Priority", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 8, "Collected", "1", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, item := range items {
		collected := "No"
		if item.Collected {
			collected = "Yes"
		}
		pdf.CellFormat(110, 7, item.DocumentName, "1", 0, "", false, 0, "")
		pdf.CellFormat(40, 7, item.Priority, "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 7, collected, "1", 1, "C", false, 0, "")
	}
}

func (e *PDFExporter) renderExhibits(pdf *gofpdf.Fpdf, exhibits []PacketExhibit) {
	if len(exhibits) == 0 {
		return
	}
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 9, "Exhibit Index", "", 1, "", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(30, 8, "Exhibit", "1", 0, "C", false, 0, "")
	pdf.CellFormat(110, 8, "Title", "1", 0, "", false, 0, "")
	pdf.CellFormat(40, 8, "Pages", "1", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, exhibit := range exhibits {
		pdf.CellFormat(30, 7, exhibit.Label, "1", 0, "C", false, 0, "")
		pdf.CellFormat(110, 7, exhibit.Title, "1", 0, "", false, 0, "")
		pdf.CellFormat(40, 7, exhibit.PageRange, "1", 1, "C", false, 0, "")
	}
}
