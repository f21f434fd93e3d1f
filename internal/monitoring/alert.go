package monitoring

import (
	"github.com/rs/zerolog/log"
)

// Alert raises an operator-facing alert (logged for now; routed to the paging
// pipeline by the log shipper).
func Alert(message string, labels map[string]string) {
	log.Error().
		Str("alert", message).
		Fields(labels).
		Msg("ALERT: settings subsystem issue detected")
}
