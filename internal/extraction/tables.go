package extraction

import (
	"fmt"

	"github.com/caiodutra/extracta/pkg/models"
)

// Custom field ids shared across extraction types.
const (
	fieldCDType        = "customfield_10466"
	fieldDivergence    = "customfield_10300"
	fieldReceiptDate   = "customfield_10433"
	fieldStore         = "customfield_10169"
	fieldReportedAt    = "customfield_10475"
	fieldDamageType    = "customfield_10288"
	fieldNextInventory = "customfield_10475"
	fieldReturnType    = "customfield_11218"
)

// divergenceSlot maps one named category slot to its four quantity fields.
// The upstream form has five product positions per category group and
// assigns each position its own quantity custom fields; the association is
// arbitrary on the Jira side, so it is declared here as data rather than
// derived from the slot label.
type divergenceSlot struct {
	CategoryField string
	Category      string
	ChargedQty    string
	ReceivedQty   string
	ChargedKg     string
	ReceivedKg    string
}

// quantityFields indexes the per-position quantity field ids, position 1..5.
var quantityFields = [5]struct {
	ChargedQty  string
	ReceivedQty string
	ChargedKg   string
	ReceivedKg  string
}{
	{"customfield_10314", "customfield_10315", "customfield_10417", "customfield_10423"},
	{"customfield_10318", "customfield_10319", "customfield_10418", "customfield_10424"},
	{"customfield_103140", "customfield_103146", "customfield_104120", "customfield_104225"},
	{"customfield_103142", "customfield_103147", "customfield_104121", "customfield_104226"},
	{"customfield_103144", "customfield_103148", "customfield_104122", "customfield_104227"},
}

// divergenceSlots is the full 25-slot table: five category groups times
// five positions. Category field ids run contiguously from 11070.
var divergenceSlots = buildDivergenceSlots()

func buildDivergenceSlots() []divergenceSlot {
	groups := []struct {
		Name       string
		FirstField int
	}{
		{"EMBALAGEM", 11070},
		{"FLV", 11075},
		{"MERCEARIA", 11080},
		{"PERECIVEIS", 11085},
		{"PRODUCAO", 11090},
	}

	slots := make([]divergenceSlot, 0, 25)
	for _, g := range groups {
		for pos := 0; pos < 5; pos++ {
			q := quantityFields[pos]
			slots = append(slots, divergenceSlot{
				CategoryField: fmt.Sprintf("customfield_%d", g.FirstField+pos),
				Category:      fmt.Sprintf("%s %d", g.Name, pos+1),
				ChargedQty:    q.ChargedQty,
				ReceivedQty:   q.ReceivedQty,
				ChargedKg:     q.ChargedKg,
				ReceivedKg:    q.ReceivedKg,
			})
		}
	}
	return slots
}

// productSlot maps one product field to its quantity field for the
// single-product extraction types.
type productSlot struct {
	ProductField  string
	QuantityField string
}

var damageSlots = []productSlot{
	{"customfield_11090", "customfield_10315"},
	{"customfield_11091", "customfield_10329"},
	{"customfield_11092", "customfield_10346"},
	{"customfield_11093", "customfield_10347"},
	{"customfield_11094", "customfield_10349"},
}

var qualitySlots = []productSlot{
	{"customfield_11090", "customfield_10315"},
	{"customfield_11091", "customfield_10329"},
	{"customfield_11092", "customfield_10346"},
	{"customfield_11093", "customfield_10347"},
	{"customfield_11094", "customfield_10348"},
}

// FieldsFor returns the field-selection list sent to the search endpoint
// for the given extraction type. Fetching only the referenced fields keeps
// page payloads small.
func FieldsFor(extractionType string) []string {
	switch extractionType {
	case models.TypeDivergences:
		fields := []string{"key", "created", "status", fieldCDType, fieldDivergence, fieldReceiptDate, fieldStore}
		for _, s := range divergenceSlots {
			fields = append(fields, s.CategoryField)
		}
		return fields
	case models.TypeDamages:
		fields := []string{"key", "created", "status", fieldReportedAt, "reporter", fieldStore, fieldDamageType}
		for _, s := range damageSlots {
			fields = append(fields, s.ProductField, s.QuantityField)
		}
		return fields
	case models.TypeQuality:
		fields := []string{"key", "created", "status", fieldNextInventory, "reporter", fieldStore}
		for _, s := range qualitySlots {
			fields = append(fields, s.ProductField, s.QuantityField)
		}
		return fields
	case models.TypeReturns:
		return []string{"key", "created", "reporter", fieldStore, fieldReturnType, "status"}
	default:
		return nil
	}
}
