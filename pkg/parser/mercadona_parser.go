package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"mercagasto/domain"

	"github.com/shopspring/decimal"
)

const StoreName = "MERCADONA, S.A."

var (
	storeRe      = regexp.MustCompile(`MERCADONA.*?\bA-?(\d{8})\b`)
	postalRe     = regexp.MustCompile(`^(\d{5})\s+(\D.*)$`)
	phoneRe      = regexp.MustCompile(`(?i)TEL[ÉE]FONO:?\s*(\d{9})`)
	dateRe       = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})\s+(\d{2}:\d{2})`)
	orderRe      = regexp.MustCompile(`\bOP:\s*(\d+)`)
	simplifiedRe = regexp.MustCompile(`(?i)FACTURA\s+SIMPLIFICADA:\s*(\d+-\d+-\d+)`)
	invoiceRe    = regexp.MustCompile(`(?i)(?:^|\s)FACTURA:\s*(\d[\d-]*)`)
	invoiceNoRe  = regexp.MustCompile(`(?i)N[º°O]\.?\s*(?:FACTURA|FAC):\s*(\d+(?:-\d+)*)`)
	priceRe      = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})*,\d{2}$`)
	weightRe     = regexp.MustCompile(`^(\d+,\d{3})\s*kg\s+(\d+,\d{2})\s*€/kg\s+(\d+,\d{2})$`)
	totalRe      = regexp.MustCompile(`^TOTAL\b[^\d]*(\d{1,3}(?:\.\d{3})*,\d{2})`)
	taxRowRe     = regexp.MustCompile(`^(\d{1,2})\s*%\s+(\d+(?:\.\d{3})*,\d{2})\s+(\d+(?:\.\d{3})*,\d{2})`)
	addressRe    = regexp.MustCompile(`^(C/|CL\.?\s|CALLE|AVDA|AV\.|AVENIDA|PLAZA|PZA|CTRA|CARRETERA|PASEO|P\.º)`)
)

type section int

const (
	sectionHeader section = iota
	sectionItems
	sectionFooter
	sectionTaxes
)

// MercadonaParser reads the text of a Mercadona "factura simplificada".
type MercadonaParser struct {
	loc *time.Location
}

// StoreLocation is the time zone printed receipt times are in. It falls
// back to UTC when the zone database is missing.
func StoreLocation() *time.Location {
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		return time.UTC
	}
	return loc
}

func NewMercadonaParser() *MercadonaParser {
	return &MercadonaParser{loc: StoreLocation()}
}

func NewMercadonaParserIn(loc *time.Location) *MercadonaParser {
	return &MercadonaParser{loc: loc}
}

type lineParser struct {
	out      *domain.ParsedReceipt
	sec      section
	pending  *domain.RawLineItem
	hasTotal bool
	loc      *time.Location
}

func (p *MercadonaParser) Parse(text string) (*domain.ParsedReceipt, error) {
	lp := &lineParser{out: &domain.ParsedReceipt{}, loc: p.loc}
	for _, raw := range strings.Split(text, "\n") {
		line := cleanLine(raw)
		if line == "" {
			continue
		}
		lp.feed(line)
	}

	r := lp.out
	switch {
	case r.TaxID == "":
		return nil, &domain.ParseError{Field: domain.FieldStoreHeader}
	case r.InvoiceNumber == "":
		return nil, &domain.ParseError{Field: domain.FieldInvoiceNumber}
	case !lp.hasTotal:
		return nil, &domain.ParseError{Field: domain.FieldTotals}
	case len(r.Taxes) == 0:
		return nil, &domain.ParseError{Field: domain.FieldTaxTable}
	}
	return r, nil
}

func (lp *lineParser) feed(line string) {
	upper := strings.ToUpper(line)

	if upper == "TARJETA BANCARIA" || strings.HasPrefix(upper, "TARJETA BANCARIA") {
		lp.out.PaymentMethod = "TARJETA BANCARIA"
	} else if strings.HasPrefix(upper, "EFECTIVO") && lp.out.PaymentMethod == "" {
		lp.out.PaymentMethod = "EFECTIVO"
	}

	switch lp.sec {
	case sectionHeader:
		if isItemsHeader(upper) {
			lp.sec = sectionItems
			return
		}
		lp.header(line, upper)
	case sectionItems:
		if strings.Contains(upper, "BASE IMPONIBLE") {
			lp.pending = nil
			lp.sec = sectionTaxes
			return
		}
		if m := totalRe.FindStringSubmatch(upper); m != nil && strings.Contains(upper, "€") {
			lp.setTotal(m[1])
			lp.pending = nil
			lp.sec = sectionFooter
			return
		}
		lp.item(line)
	case sectionFooter, sectionTaxes:
		if strings.Contains(upper, "BASE IMPONIBLE") {
			lp.sec = sectionTaxes
			return
		}
		if lp.sec == sectionTaxes {
			lp.tax(upper)
		}
	}
}

func (lp *lineParser) header(line, upper string) {
	r := lp.out
	if m := storeRe.FindStringSubmatch(upper); m != nil && r.TaxID == "" {
		r.StoreName = StoreName
		r.TaxID = "A-" + m[1]
		return
	}
	if r.Address == "" && r.TaxID != "" && addressRe.MatchString(upper) {
		r.Address = line
		return
	}
	if m := postalRe.FindStringSubmatch(line); m != nil && r.PostalCode == "" {
		r.PostalCode = m[1]
		r.City = m[2]
		return
	}
	if m := phoneRe.FindStringSubmatch(line); m != nil {
		r.Phone = m[1]
	}
	if m := dateRe.FindStringSubmatch(line); m != nil && r.PurchasedAt.IsZero() {
		if t, err := time.ParseInLocation("02/01/2006 15:04", m[1]+" "+m[2], lp.loc); err == nil {
			r.PurchasedAt = t
		}
	}
	if m := orderRe.FindStringSubmatch(upper); m != nil {
		r.OrderNumber = m[1]
	}
	if r.InvoiceNumber == "" {
		for _, re := range []*regexp.Regexp{simplifiedRe, invoiceNoRe, invoiceRe} {
			if m := re.FindStringSubmatch(upper); m != nil {
				r.InvoiceNumber = m[1]
				break
			}
		}
	}
}

// item handles one line inside the products block. A line without prices
// opens a pending item completed by a weight line or by a continuation line
// carrying the prices.
func (lp *lineParser) item(line string) {
	if m := weightRe.FindStringSubmatch(line); m != nil {
		if lp.pending == nil {
			return
		}
		it := *lp.pending
		it.Weight = m[1] + " kg"
		it.TotalPrice = mustAmount(m[3])
		lp.out.Items = append(lp.out.Items, it)
		lp.pending = nil
		return
	}

	fields := strings.Fields(line)
	qty, err := strconv.Atoi(fields[0])
	if err != nil || qty <= 0 || (lp.pending != nil && isMeasure(fields)) {
		if lp.pending == nil {
			return
		}
		desc, prices := splitPrices(fields)
		if desc != "" {
			lp.pending.Description += " " + desc
		}
		if len(prices) > 0 {
			lp.finish(*lp.pending, prices)
			lp.pending = nil
		}
		return
	}

	lp.pending = nil
	desc, prices := splitPrices(fields[1:])
	if desc == "" {
		return
	}
	it := domain.RawLineItem{Quantity: qty, Description: desc}
	if len(prices) == 0 {
		lp.pending = &it
		return
	}
	lp.finish(it, prices)
}

func (lp *lineParser) finish(it domain.RawLineItem, prices []decimal.Decimal) {
	switch len(prices) {
	case 1:
		it.TotalPrice = prices[0]
	default:
		it.UnitPrice = decimal.NewNullDecimal(prices[len(prices)-2])
		it.TotalPrice = prices[len(prices)-1]
	}
	lp.out.Items = append(lp.out.Items, it)
}

func (lp *lineParser) setTotal(s string) {
	lp.out.Total = mustAmount(s)
	lp.hasTotal = true
}

func (lp *lineParser) tax(upper string) {
	m := taxRowRe.FindStringSubmatch(upper)
	if m == nil {
		return
	}
	rate, err := strconv.Atoi(m[1])
	if err != nil {
		return
	}
	lp.out.Taxes = append(lp.out.Taxes, domain.TaxBreakdown{
		Rate:  rate,
		Base:  mustAmount(m[2]),
		Quota: mustAmount(m[3]),
	})
}

// splitPrices separates trailing price tokens from the description words.
func splitPrices(fields []string) (string, []decimal.Decimal) {
	end := len(fields)
	for end > 0 && priceRe.MatchString(strings.TrimSuffix(fields[end-1], "€")) {
		end--
	}
	prices := make([]decimal.Decimal, 0, len(fields)-end)
	for _, f := range fields[end:] {
		prices = append(prices, mustAmount(strings.TrimSuffix(f, "€")))
	}
	return strings.Join(fields[:end], " "), prices
}

// unitWords follow a number in a packaging size such as "200 GR" or "6 X".
var unitWords = map[string]bool{
	"G": true, "GR": true, "GRS": true, "KG": true, "KGS": true,
	"ML": true, "CL": true, "L": true, "LT": true, "LTS": true,
	"UD": true, "UDS": true, "U": true, "X": true, "M": true, "CM": true,
}

// isMeasure reports whether a line starting with a number is a packaging
// size continuing the previous description rather than a new item.
func isMeasure(fields []string) bool {
	if len(fields) < 2 {
		return false
	}
	return unitWords[strings.TrimSuffix(strings.ToUpper(fields[1]), ".")]
}

func isItemsHeader(upper string) bool {
	return (strings.Contains(upper, "DESCRIPCIÓN") || strings.Contains(upper, "DESCRIPCION")) &&
		strings.Contains(upper, "IMPORTE")
}

func cleanLine(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, " ", " ")), " ")
}

// ParseAmount reads a Spanish formatted amount such as "1.234,56".
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "€"))
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return decimal.NewFromString(s)
}

func mustAmount(s string) decimal.Decimal {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
