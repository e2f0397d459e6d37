package routine

import (
	"bytes"

	"github.com/go-pdf/fpdf"
)

// DownloadName is the attachment name of the exported plan.
const DownloadName = "skincare_plan.pdf"

// RenderPDF lays out a plan as one heading plus paragraph or bullets per
// section. A nil plan renders a single explanatory paragraph.
func RenderPDF(plan *Plan) ([]byte, error) {
	return renderPDF(plan, true)
}

func renderPDF(plan *Plan, compress bool) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetTitle("Skincare Plan", true)
	pdf.SetCreator("DermaAI", true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	// Core fonts are cp1252; the translator maps the bullet and accents.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if plan == nil {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, tr(noPlanText), "", "L", false)
	} else {
		for _, sec := range Sections(*plan) {
			pdf.SetFont("Helvetica", "B", 14)
			pdf.CellFormat(0, 9, tr(sec.Title), "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 11)
			if sec.IsList {
				for _, item := range sec.Items {
					pdf.MultiCell(0, 6, tr("• "+item), "", "L", false)
				}
			} else if sec.Text != "" {
				pdf.MultiCell(0, 6, tr(sec.Text), "", "L", false)
			}
			pdf.Ln(4)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
