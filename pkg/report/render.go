package report

import (
	"bytes"
	"fmt"
	"strings"

	"mercagasto/domain"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const displayDate = "02/01/2006"

var euro = money.NewFormatter(2, ",", ".", "€", "1 $")

var titles = map[domain.ReportPeriod]string{
	domain.PeriodWeekly:  "Resumen semanal",
	domain.PeriodMonthly: "Resumen mensual",
}

// topProducts shown per period.
var topProducts = map[domain.ReportPeriod]int{
	domain.PeriodWeekly:  5,
	domain.PeriodMonthly: 10,
}

// FormatEUR prints an amount the way a Spanish receipt does, e.g. 1.234,56 €.
func FormatEUR(d decimal.Decimal) string {
	cents := money.New(d.Shift(2).Round(0).IntPart(), money.EUR)
	return euro.Format(cents.Amount())
}

func formatPercent(d decimal.Decimal) string {
	s := strings.Replace(d.StringFixed(1), ".", ",", 1)
	if d.IsPositive() {
		s = "+" + s
	}
	return s + "%"
}

func formatChange(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + FormatEUR(d)
	}
	return FormatEUR(d)
}

func Subject(r domain.PeriodReport) string {
	return fmt.Sprintf("%s Mercadona - %s", titles[r.Period], FormatEUR(r.Current.Total))
}

func periodLabel(s domain.PeriodSummary) string {
	last := s.To.AddDate(0, 0, -1)
	return fmt.Sprintf("%s - %s", s.From.Format(displayDate), last.Format(displayDate))
}

func RenderMarkdown(r domain.PeriodReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s Mercadona\n\n", titles[r.Period])
	fmt.Fprintf(&b, "**Periodo:** %s\n\n", periodLabel(r.Current))

	b.WriteString("| | Actual | Anterior |\n|---|---:|---:|\n")
	fmt.Fprintf(&b, "| Gasto | %s | %s |\n", FormatEUR(r.Current.Total), FormatEUR(r.Previous.Total))
	fmt.Fprintf(&b, "| Tickets | %d | %d |\n", r.Current.Receipts, r.Previous.Receipts)
	fmt.Fprintf(&b, "| Ticket medio | %s | %s |\n\n", FormatEUR(r.Current.AverageReceipt), FormatEUR(r.Previous.AverageReceipt))

	change := formatChange(r.Change)
	if r.ChangePercent != nil {
		change += " (" + formatPercent(*r.ChangePercent) + ")"
	}
	fmt.Fprintf(&b, "**Variación:** %s respecto a %s\n\n", change, periodLabel(r.Previous))

	if len(r.Current.Categories) > 0 {
		b.WriteString("## Por categoría\n\n| Categoría | Artículos | Importe |\n|---|---:|---:|\n")
		for _, c := range r.Current.Categories {
			fmt.Fprintf(&b, "| %s | %d | %s |\n", escapeCell(c.Name), c.Items, FormatEUR(c.Amount))
		}
		b.WriteString("\n")
	}

	products := r.Current.TopProducts
	if limit := topProducts[r.Period]; limit > 0 && len(products) > limit {
		products = products[:limit]
	}
	if len(products) > 0 {
		b.WriteString("## Productos con más gasto\n\n| Producto | Unidades | Compras | Importe |\n|---|---:|---:|---:|\n")
		for _, p := range products {
			fmt.Fprintf(&b, "| %s | %d | %d | %s |\n", escapeCell(p.Description), p.Quantity, p.Purchases, FormatEUR(p.Amount))
		}
		b.WriteString("\n")
	}

	if r.Current.Receipts == 0 {
		b.WriteString("_Sin tickets en este periodo._\n")
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// RenderHTML converts a markdown report into the email body.
func RenderHTML(md string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"UTF-8\"></head><body>\n")
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render report html: %w", err)
	}
	buf.WriteString("</body></html>\n")
	return buf.String(), nil
}

// RenderTerminal styles a markdown report for a terminal.
func RenderTerminal(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}
