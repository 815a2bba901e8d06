package jql

import (
	"fmt"

	"github.com/caiodutra/extracta/pkg/models"
)

// QueryBuilder constructs the JQL query strings used by the extraction
// pipeline. All methods are pure functions with no side effects.
// Zero value is ready to use.
type QueryBuilder struct{}

// Fixed service-desk queries. Damages, quality and returns always extract
// the same request-type backlog; only divergences is date-bounded.
const (
	damagesQuery = `project = LOG AND "Request Type" = "Informar avaria na entrega - Central de Produção" AND "Centro de Distribuição - Central de Produção" = RJ ORDER BY created DESC, priority DESC`
	qualityQuery = `project = LOG AND "Request Type" = "Qualidade (LOG)" AND "Centro de Distribuição - Central de Produção" = RJ ORDER BY priority ASC, "Tempo de resolução" ASC`
	returnsQuery = `project = LOG AND "Request Type" = "Devolução aos CDs por avarias de validade" AND "Centro de distribuição de destino (CD)" = "CD Pavuna RJ (CD03)" ORDER BY priority ASC, "Tempo de resolução" ASC`
)

// BuildDivergencesQuery returns the date-bounded divergences query.
// Dates are in the YYYY-MM-DD form JQL expects.
func (b QueryBuilder) BuildDivergencesQuery(startDate, endDate string) string {
	return fmt.Sprintf(`project = LOG AND created >= "%s" AND created <= "%s"`, startDate, endDate)
}

// BuildQuery returns the query for the given extraction type.
// For divergences the payload's date range is required; for the other
// types the fixed query is returned and the dates are ignored.
func (b QueryBuilder) BuildQuery(extractionType string, payload models.JobPayload) (string, error) {
	if payload.JQL != "" {
		return payload.JQL, nil
	}

	switch extractionType {
	case models.TypeDivergences:
		if payload.StartDate == "" || payload.EndDate == "" {
			return "", fmt.Errorf("divergences extraction requires start_date and end_date")
		}
		return b.BuildDivergencesQuery(payload.StartDate, payload.EndDate), nil
	case models.TypeDamages:
		return damagesQuery, nil
	case models.TypeQuality:
		return qualityQuery, nil
	case models.TypeReturns:
		return returnsQuery, nil
	default:
		return "", fmt.Errorf("unknown extraction type: %q", extractionType)
	}
}
