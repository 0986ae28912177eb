package report

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
)

const receiptWidth = 32

var (
	escInit      = []byte{0x1b, 0x40}
	escCodePage  = []byte{0x1b, 0x74, 0x13} // PC858, has the euro sign
	escBoldOn    = []byte{0x1b, 0x45, 0x01}
	escBoldOff   = []byte{0x1b, 0x45, 0x00}
	escAlignMid  = []byte{0x1b, 0x61, 0x01}
	escAlignLeft = []byte{0x1b, 0x61, 0x00}
	escCut       = []byte{0x1d, 0x56, 0x41, 0x10}
)

type Receipt struct {
	SaleID   string `json:"saleId"`
	ESCPOS   []byte `json:"escpos"`
	Preview  string `json:"previewText"`
	FileName string `json:"fileName"`
}

// BuildReceipt prints sale for a 58 mm thermal printer.
func BuildReceipt(sale domain.SaleRecord, settings domain.Settings, loc *time.Location) (Receipt, error) {
	if loc == nil {
		loc = time.UTC
	}
	unit := formatAmount
	if sale.TokenMode {
		unit = formatTokens
	}

	title := []string{center(settings.BusinessName)}
	body := []string{
		strings.Repeat("=", receiptWidth),
		"Ticket : " + shortID(sale.ID),
		"Date   : " + sale.Date.In(loc).Format("02/01/2006 15:04"),
	}
	if sale.MemberName != "" {
		body = append(body, "Vendeur: "+sale.MemberName)
	}
	if sale.CustomerName != "" {
		body = append(body, "Client : "+sale.CustomerName)
	}
	body = append(body, strings.Repeat("-", receiptWidth))
	for _, item := range sale.Items {
		body = append(body, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
		body = append(body, alignRight(unit(item.LineTotal(sale.TokenMode))))
	}
	body = append(body, strings.Repeat("-", receiptWidth))

	total := columns("TOTAL", unit(sale.Total))
	tail := []string{"Paiement: " + sale.PaymentMethod.Label()}
	if sale.Refunded {
		tail = append(tail, "*** VENTE ANNULÉE ***")
	}
	footer := strings.TrimSpace(settings.ReceiptFooter)
	if footer == "" {
		footer = "Merci et à bientôt !"
	}
	tail = append(tail, strings.Repeat("=", receiptWidth), center(footer), "")

	enc := encoding.ReplaceUnsupported(charmap.CodePage858.NewEncoder())
	var out []byte
	out = append(out, escInit...)
	out = append(out, escCodePage...)

	write := func(lines ...string) error {
		for _, line := range lines {
			encoded, err := enc.String(line)
			if err != nil {
				return fmt.Errorf("encoding receipt line: %w", err)
			}
			out = append(out, encoded...)
			out = append(out, '\n')
		}
		return nil
	}

	out = append(out, escAlignMid...)
	out = append(out, escBoldOn...)
	if err := write(title...); err != nil {
		return Receipt{}, err
	}
	out = append(out, escBoldOff...)
	out = append(out, escAlignLeft...)
	if err := write(body...); err != nil {
		return Receipt{}, err
	}
	out = append(out, escBoldOn...)
	if err := write(total); err != nil {
		return Receipt{}, err
	}
	out = append(out, escBoldOff...)
	if err := write(tail...); err != nil {
		return Receipt{}, err
	}
	out = append(out, escCut...)

	preview := make([]string, 0, len(title)+len(body)+len(tail)+1)
	preview = append(preview, title...)
	preview = append(preview, body...)
	preview = append(preview, total)
	preview = append(preview, tail...)

	return Receipt{
		SaleID:   sale.ID,
		ESCPOS:   out,
		Preview:  strings.Join(preview, "\n"),
		FileName: fmt.Sprintf("ticket-%s.bin", shortID(sale.ID)),
	}, nil
}

func formatAmount(d decimal.Decimal) string { return FormatEuro(d) }

func formatTokens(d decimal.Decimal) string {
	if d.Equal(decimal.NewFromInt(1)) {
		return "1 jeton"
	}
	return strings.Replace(d.String(), ".", ",", 1) + " jetons"
}

func shortID(id string) string {
	if i := strings.LastIndexByte(id, '-'); i >= 0 && len(id)-i > 9 {
		return strings.ToUpper(id[i+1 : i+9])
	}
	return strings.ToUpper(id)
}

func center(s string) string {
	n := utf8.RuneCountInString(s)
	if n >= receiptWidth {
		return s
	}
	return strings.Repeat(" ", (receiptWidth-n)/2) + s
}

func alignRight(s string) string {
	n := utf8.RuneCountInString(s)
	if n >= receiptWidth {
		return s
	}
	return strings.Repeat(" ", receiptWidth-n) + s
}

func columns(left, right string) string {
	gap := receiptWidth - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}
