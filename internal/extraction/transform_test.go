package extraction

import (
	"testing"
	"time"

	"github.com/caiodutra/extracta/pkg/models"
)

// --- FieldString ---

func TestFieldString(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "CD03", "CD03"},
		{"number", float64(42), "42"},
		{"decimal", float64(12.5), "12.5"},
		{"bool", true, "true"},
		{"picklist object", map[string]any{"value": "Avaria"}, "Avaria"},
		{"status object", map[string]any{"name": "Done"}, "Done"},
		{"user object", map[string]any{"displayName": "Ana Souza"}, "Ana Souza"},
		{"object without known keys", map[string]any{"id": "123"}, ""},
		{"nested null value", map[string]any{"value": nil}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FieldString(tt.in); got != tt.want {
				t.Errorf("FieldString(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// --- ParseDate ---

func TestParseDate_ISO(t *testing.T) {
	got, ok := ParseDate("2024-03-05")
	if !ok {
		t.Fatal("expected valid date")
	}
	if got.Year() != 2024 || got.Month() != time.March || got.Day() != 5 {
		t.Errorf("unexpected date: %v", got)
	}
}

func TestParseDate_JiraTimestamp(t *testing.T) {
	got, ok := ParseDate("2024-03-05T14:23:11.000-0300")
	if !ok {
		t.Fatal("expected valid date")
	}
	if got.UTC().Hour() != 17 {
		t.Errorf("timezone not honored: %v", got)
	}
}

func TestParseDate_DayFirst(t *testing.T) {
	slash, ok := ParseDate("31/01/2024")
	if !ok {
		t.Fatal("expected valid date")
	}
	iso, ok := ParseDate("2024-01-31")
	if !ok {
		t.Fatal("expected valid date")
	}
	if !slash.Equal(iso) {
		t.Errorf("31/01/2024 = %v, want same day as 2024-01-31 (%v)", slash, iso)
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "not a date", "31/31/2024"} {
		if _, ok := ParseDate(in); ok {
			t.Errorf("ParseDate(%q) should not parse", in)
		}
	}
}

// --- divergences transform ---

func divergenceIssue(populated map[string]string) models.RawIssue {
	fields := map[string]any{
		"status":            map[string]any{"name": "Em andamento"},
		"created":           "2024-03-05T10:00:00.000-0300",
		"customfield_10466": map[string]any{"value": "CD Seco"},
		"customfield_10300": map[string]any{"value": "Falta"},
		"customfield_10433": "05/03/2024",
		"customfield_10169": map[string]any{"value": "Loja 12"},
	}
	for field, material := range populated {
		fields[field] = map[string]any{"value": material}
	}
	return models.RawIssue{Key: "LOG-101", Fields: fields}
}

func TestTransformDivergences_FanOut(t *testing.T) {
	issue := divergenceIssue(map[string]string{
		"customfield_11070": "Caixa plástica", // EMBALAGEM 1
		"customfield_11076": "Banana",         // FLV 2
		"customfield_11094": "Pão francês",    // PRODUCAO 5
	})
	issue.Fields["customfield_10314"] = "10" // charged qty, position 1
	issue.Fields["customfield_10319"] = "3"  // received qty, position 2
	issue.Fields["customfield_104122"] = "7" // charged kg, position 5

	rows := Transform(issue, models.TypeDivergences)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	for _, row := range rows {
		if row["log_key"] != "LOG-101" {
			t.Errorf("row missing ticket key: %v", row)
		}
		if row["status"] != "Em andamento" || row["cd_type"] != "CD Seco" || row["store"] != "Loja 12" {
			t.Errorf("shared metadata not copied: %v", row)
		}
	}

	byCategory := map[string]models.Row{}
	for _, row := range rows {
		byCategory[row["category"]] = row
	}
	if byCategory["EMBALAGEM 1"]["charged_qty"] != "10" {
		t.Errorf("position 1 charged qty: %v", byCategory["EMBALAGEM 1"])
	}
	if byCategory["FLV 2"]["received_qty"] != "3" {
		t.Errorf("position 2 received qty: %v", byCategory["FLV 2"])
	}
	if byCategory["PRODUCAO 5"]["charged_kg"] != "7" {
		t.Errorf("position 5 charged kg: %v", byCategory["PRODUCAO 5"])
	}
	if byCategory["FLV 2"]["material"] != "Banana" {
		t.Errorf("material not copied: %v", byCategory["FLV 2"])
	}
}

func TestTransformDivergences_NoSlots(t *testing.T) {
	rows := Transform(divergenceIssue(nil), models.TypeDivergences)
	if len(rows) != 0 {
		t.Fatalf("expected no rows for issue without populated slots, got %d", len(rows))
	}
}

func TestTransformDivergences_DateNormalization(t *testing.T) {
	issue := divergenceIssue(map[string]string{"customfield_11070": "Caixa"})
	rows := Transform(issue, models.TypeDivergences)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	// Receipt date arrives day-first; must normalize to the same calendar day.
	want, _ := ParseDate("2024-03-05")
	got, ok := ParseDate(rows[0]["receipt_date"])
	if !ok || !got.Equal(want) {
		t.Errorf("receipt_date = %q, want %v", rows[0]["receipt_date"], want)
	}
}

func TestFilterDivergenceRows(t *testing.T) {
	rows := []models.Row{
		{"log_key": "LOG-1", "charged_qty": "5"},
		{"log_key": "LOG-2", "charged_qty": "", "received_qty": "", "charged_kg": "", "received_kg": ""},
		{"log_key": "LOG-1", "received_kg": "2"},
		{"log_key": "LOG-3", "received_qty": "1"},
	}

	filtered := FilterDivergenceRows(rows)
	if len(filtered) != 3 {
		t.Fatalf("expected 3 rows after filter, got %d", len(filtered))
	}
	// Grouped by key: both LOG-1 rows come before LOG-3.
	if filtered[0]["log_key"] != "LOG-1" || filtered[1]["log_key"] != "LOG-1" || filtered[2]["log_key"] != "LOG-3" {
		t.Errorf("unexpected grouping order: %v", filtered)
	}
}

// --- single-product transforms ---

func damageIssue() models.RawIssue {
	return models.RawIssue{
		Key: "LOG-202",
		Fields: map[string]any{
			"status":            map[string]any{"name": "Aberto"},
			"created":           "2024-02-01T08:30:00.000-0300",
			"reporter":          map[string]any{"displayName": "Carlos Lima"},
			"customfield_10475": "01/02/2024",
			"customfield_10169": map[string]any{"value": "Loja 7"},
			"customfield_10288": map[string]any{"value": "Validade"},
		},
	}
}

func TestTransformDamages_TwoSlots(t *testing.T) {
	issue := damageIssue()
	issue.Fields["customfield_11090"] = map[string]any{"value": "Leite"}
	issue.Fields["customfield_10315"] = "12"
	issue.Fields["customfield_11092"] = map[string]any{"value": "Iogurte"}
	issue.Fields["customfield_10346"] = "4"

	rows := Transform(issue, models.TypeDamages)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["product"] != "Leite" || rows[0]["quantity"] != "12" {
		t.Errorf("first slot: %v", rows[0])
	}
	if rows[1]["product"] != "Iogurte" || rows[1]["quantity"] != "4" {
		t.Errorf("second slot: %v", rows[1])
	}
	if rows[0]["reporter"] != "Carlos Lima" || rows[0]["damage_type"] != "Validade" {
		t.Errorf("shared fields: %v", rows[0])
	}
}

func TestTransformDamages_FallbackRow(t *testing.T) {
	rows := Transform(damageIssue(), models.TypeDamages)
	if len(rows) != 1 {
		t.Fatalf("expected exactly 1 fallback row, got %d", len(rows))
	}
	if rows[0]["product"] != noProductInformed || rows[0]["quantity"] != "0" {
		t.Errorf("fallback row: %v", rows[0])
	}
	if rows[0]["log_key"] != "LOG-202" {
		t.Errorf("fallback row missing ticket key: %v", rows[0])
	}
}

func TestTransformQuality_UsesOwnQuantityTable(t *testing.T) {
	issue := models.RawIssue{
		Key: "LOG-303",
		Fields: map[string]any{
			"status":            map[string]any{"name": "Aberto"},
			"created":           "2024-02-10",
			"reporter":          map[string]any{"displayName": "Paula"},
			"customfield_10475": "15/02/2024",
			"customfield_10169": map[string]any{"value": "Loja 2"},
			"customfield_11094": map[string]any{"value": "Queijo"},
			"customfield_10348": "9",
			// Damage-table quantity for the same position; must be ignored.
			"customfield_10349": "999",
		},
	}

	rows := Transform(issue, models.TypeQuality)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0]["quantity"] != "9" {
		t.Errorf("quality quantity = %q, want 9", rows[0]["quantity"])
	}
	if rows[0]["next_inventory_date"] != "15/02/2024" {
		t.Errorf("next inventory date: %v", rows[0])
	}
}

// --- returns transform ---

func TestTransformReturns_OneToOne(t *testing.T) {
	issue := models.RawIssue{
		Key: "LOG-404",
		Fields: map[string]any{
			"status":            map[string]any{"name": "Concluído"},
			"created":           "2024-01-20T12:00:00.000-0300",
			"reporter":          map[string]any{"displayName": "Rita"},
			"customfield_10169": map[string]any{"value": "Loja 9"},
			"customfield_11218": map[string]any{"value": "Avaria de validade"},
		},
	}

	rows := Transform(issue, models.TypeReturns)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0]
	if row["log_key"] != "LOG-404" || row["return_type"] != "Avaria de validade" || row["status"] != "Concluído" {
		t.Errorf("unexpected row: %v", row)
	}
}

func TestTransform_UnknownType(t *testing.T) {
	if rows := Transform(models.RawIssue{Key: "X"}, "refunds"); rows != nil {
		t.Errorf("expected nil for unknown type, got %v", rows)
	}
}

// --- tables ---

func TestDivergenceSlotTable(t *testing.T) {
	if len(divergenceSlots) != 25 {
		t.Fatalf("expected 25 slots, got %d", len(divergenceSlots))
	}
	seen := map[string]bool{}
	for _, slot := range divergenceSlots {
		if seen[slot.CategoryField] {
			t.Errorf("duplicate category field %s", slot.CategoryField)
		}
		seen[slot.CategoryField] = true
		if slot.ChargedQty == "" || slot.ReceivedQty == "" || slot.ChargedKg == "" || slot.ReceivedKg == "" {
			t.Errorf("slot %s missing quantity fields", slot.Category)
		}
	}
	// Spot-check the declared association for position 3.
	if divergenceSlots[2].Category != "EMBALAGEM 3" || divergenceSlots[2].ChargedQty != "customfield_103140" {
		t.Errorf("position 3 mapping wrong: %+v", divergenceSlots[2])
	}
}

func TestFieldsFor(t *testing.T) {
	div := FieldsFor(models.TypeDivergences)
	if len(div) != 7+25 {
		t.Errorf("divergences field list: got %d entries", len(div))
	}
	ret := FieldsFor(models.TypeReturns)
	if len(ret) != 6 {
		t.Errorf("returns field list: got %d entries", len(ret))
	}
	if FieldsFor("refunds") != nil {
		t.Error("unknown type should yield nil field list")
	}
}
