// Package receipt renders the manual-recovery sheet support staff use to finish a failed order.
package receipt

import (
	"bytes"
	"fmt"
	"regexp"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/expresscouriers/checkout/internal/domain"
	"github.com/expresscouriers/checkout/internal/fee"
)

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Render builds the recovery sheet PDF for rec and returns its bytes and a download filename.
// Times are shown in loc.
func Render(rec domain.FailedOrderRecord, loc *time.Location) ([]byte, string, error) {
	if loc == nil {
		loc = time.UTC
	}
	d := rec.Draft

	pdf := gofpdf.New("P", "mm", "Letter", "")
	pdf.SetTitle("Order recovery "+rec.Key, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "ORDER RECOVERY SHEET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, "Recovery key : "+rec.Key)
	pdf.Ln(6)
	pdf.Cell(0, 6, "Recorded     : "+rec.CreatedAt.In(loc).Format("2006-01-02 15:04 MST"))
	pdf.Ln(6)
	status := "NOT CHARGED - customer must place the order again"
	if rec.PaymentCaptured {
		status = "PAID - order must be entered manually"
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 6, "Payment      : "+status)
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, "Reason: "+safe(rec.Reason, "-"), "", "", false)
	pdf.Ln(4)

	section(pdf, "Pickup")
	line(pdf, "Sender", d.Sender.Name)
	line(pdf, "Phone", d.Sender.Phone)
	line(pdf, "Email", d.Sender.Email)
	line(pdf, "Address", d.PickupAddress.Display())
	pdf.Ln(3)

	section(pdf, "Drop-off")
	line(pdf, "Receiver", d.Receiver.Name)
	line(pdf, "Phone", d.Receiver.Phone)
	line(pdf, "Email", d.Receiver.Email)
	line(pdf, "Address", d.DropoffAddress.Display())
	pdf.Ln(3)

	section(pdf, "Package")
	line(pdf, "City", d.CityID)
	if d.WeightKg > 0 {
		line(pdf, "Weight", fmt.Sprintf("%.1f kg", d.WeightKg))
	}
	line(pdf, "Notes", d.Notes)
	pdf.Ln(3)

	q := d.Quote.Rounded()
	section(pdf, "Charges")
	if total, ok := q.TotalAmount(); ok {
		if q.DistanceKm != nil {
			line(pdf, "Distance", fmt.Sprintf("%.1f km", *q.DistanceKm))
		}
		line(pdf, "Delivery", "$"+fee.FormatMoney(q.BaseFee))
		if q.DistanceSurcharge > 0 {
			line(pdf, "Long distance", "$"+fee.FormatMoney(q.DistanceSurcharge))
		}
		if q.RushSurcharge > 0 {
			line(pdf, "Rush hour", "$"+fee.FormatMoney(q.RushSurcharge))
		}
		line(pdf, "GST", "$"+fee.FormatMoney(q.Tax))
		line(pdf, "Tip", "$"+fee.FormatMoney(q.Tip))
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Total: $"+fee.FormatMoney(total))
		pdf.Ln(10)
	} else {
		line(pdf, "Total", "pending distance")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("RECOVERY_%s.pdf", unsafeFilename.ReplaceAllString(rec.Key, "_"))
	return buf.Bytes(), filename, nil
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, title)
	pdf.Ln(7)
}

func line(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, fmt.Sprintf("%-9s: %s", label, safe(value, "-")), "", "", false)
}

func safe(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
