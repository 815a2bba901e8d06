package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func JobStatusKey(jobID uuid.UUID) string {
	return fmt.Sprintf("job:%s", jobID)
}

func RateLimitKey(clientAddr string) string {
	return fmt.Sprintf("ratelimit:%s", clientAddr)
}

func HistoryKey(extractionType string, page, limit int) string {
	return fmt.Sprintf("extractions:history:%s:%d:%d", extractionType, page, limit)
}
