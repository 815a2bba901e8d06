package extraction

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caiodutra/extracta/pkg/models"
)

// noProductInformed is the sentinel product value for single-product
// tickets that carry no populated product slot.
const noProductInformed = "Not informed"

// FieldString resolves an upstream field value to a string. Fields arrive
// as scalars or as objects carrying a value/name/displayName property;
// null and missing fields resolve to "". Never panics on any input shape.
func FieldString(v any) string {
	switch f := v.(type) {
	case nil:
		return ""
	case string:
		return f
	case float64:
		return strconv.FormatFloat(f, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(f)
	case map[string]any:
		for _, key := range []string{"value", "name", "displayName"} {
			if inner, ok := f[key]; ok {
				return FieldString(inner)
			}
		}
		return ""
	default:
		return fmt.Sprint(f)
	}
}

// Date layouts accepted from the upstream, tried in order. The day-first
// slash form is the canonical fallback; month-first is deliberately not
// supported.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02",
	"02/01/2006",
}

// ParseDate normalizes an upstream date string. Empty or unparseable input
// yields ok=false rather than an error; a bad date must never fail a row.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// normalizeDate returns the RFC3339 form of an upstream date string, or ""
// when the input does not parse.
func normalizeDate(s string) string {
	t, ok := ParseDate(s)
	if !ok {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Transform maps one raw issue into zero or more normalized rows for the
// given extraction type. The output is recomputed fresh on every call.
func Transform(issue models.RawIssue, extractionType string) []models.Row {
	switch extractionType {
	case models.TypeDivergences:
		return transformDivergences(issue)
	case models.TypeDamages:
		return transformProductSlots(issue, damageSlots, damageRow)
	case models.TypeQuality:
		return transformProductSlots(issue, qualitySlots, qualityRow)
	case models.TypeReturns:
		return []models.Row{transformReturn(issue)}
	default:
		return nil
	}
}

// transformDivergences fans one issue out to one row per populated
// category slot, each carrying the shared ticket metadata.
func transformDivergences(issue models.RawIssue) []models.Row {
	shared := models.Row{
		"log_key":         issue.Key,
		"status":          FieldString(issue.Fields["status"]),
		"created_date":    normalizeDate(FieldString(issue.Fields["created"])),
		"cd_type":         FieldString(issue.Fields[fieldCDType]),
		"divergence_type": FieldString(issue.Fields[fieldDivergence]),
		"receipt_date":    normalizeDate(FieldString(issue.Fields[fieldReceiptDate])),
		"store":           FieldString(issue.Fields[fieldStore]),
	}

	var rows []models.Row
	for _, slot := range divergenceSlots {
		material, ok := issue.Fields[slot.CategoryField]
		if !ok || material == nil {
			continue
		}

		row := models.Row{}
		for k, v := range shared {
			row[k] = v
		}
		row["category"] = slot.Category
		row["material"] = FieldString(material)
		row["charged_qty"] = FieldString(issue.Fields[slot.ChargedQty])
		row["received_qty"] = FieldString(issue.Fields[slot.ReceivedQty])
		row["charged_kg"] = FieldString(issue.Fields[slot.ChargedKg])
		row["received_kg"] = FieldString(issue.Fields[slot.ReceivedKg])
		rows = append(rows, row)
	}
	return rows
}

// transformProductSlots emits one row per populated product slot. Tickets
// with no populated slot still yield exactly one fallback row so every
// processed ticket is represented downstream.
func transformProductSlots(issue models.RawIssue, slots []productSlot, build func(models.RawIssue, string, string) models.Row) []models.Row {
	var rows []models.Row
	for _, slot := range slots {
		product, ok := issue.Fields[slot.ProductField]
		if !ok || product == nil {
			continue
		}
		rows = append(rows, build(issue, FieldString(product), FieldString(issue.Fields[slot.QuantityField])))
	}

	if len(rows) == 0 {
		rows = append(rows, build(issue, noProductInformed, "0"))
	}
	return rows
}

func damageRow(issue models.RawIssue, product, quantity string) models.Row {
	return models.Row{
		"log_key":      issue.Key,
		"created_date": normalizeDate(FieldString(issue.Fields["created"])),
		"status":       FieldString(issue.Fields["status"]),
		"reported_at":  FieldString(issue.Fields[fieldReportedAt]),
		"reporter":     FieldString(issue.Fields["reporter"]),
		"store":        FieldString(issue.Fields[fieldStore]),
		"product":      product,
		"quantity":     quantity,
		"damage_type":  FieldString(issue.Fields[fieldDamageType]),
	}
}

func qualityRow(issue models.RawIssue, product, quantity string) models.Row {
	return models.Row{
		"log_key":             issue.Key,
		"created_date":        normalizeDate(FieldString(issue.Fields["created"])),
		"status":              FieldString(issue.Fields["status"]),
		"next_inventory_date": FieldString(issue.Fields[fieldNextInventory]),
		"reporter":            FieldString(issue.Fields["reporter"]),
		"store":               FieldString(issue.Fields[fieldStore]),
		"product":             product,
		"quantity":            quantity,
	}
}

// transformReturn maps one issue to exactly one row; returns have no
// sub-item fan-out.
func transformReturn(issue models.RawIssue) models.Row {
	return models.Row{
		"log_key":      issue.Key,
		"created_date": normalizeDate(FieldString(issue.Fields["created"])),
		"reporter":     FieldString(issue.Fields["reporter"]),
		"store":        FieldString(issue.Fields[fieldStore]),
		"return_type":  FieldString(issue.Fields[fieldReturnType]),
		"status":       FieldString(issue.Fields["status"]),
	}
}

// FilterDivergenceRows groups rows by ticket key and drops those carrying
// no quantity data at all. Applied after the transform pass, divergences
// only.
func FilterDivergenceRows(rows []models.Row) []models.Row {
	grouped := make(map[string][]models.Row)
	var order []string
	for _, row := range rows {
		key := row["log_key"]
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], row)
	}

	filtered := make([]models.Row, 0, len(rows))
	for _, key := range order {
		for _, row := range grouped[key] {
			if row["charged_qty"] != "" || row["received_qty"] != "" ||
				row["charged_kg"] != "" || row["received_kg"] != "" {
				filtered = append(filtered, row)
			}
		}
	}
	return filtered
}
