package fsjson

import (
	"strings"
	"time"

	"github.com/jaakkos/loomwork/internal/domain"
)

// renderDesign produces the human-readable markdown rendering of the design
// document. The file is regenerated wholesale on every design update.
func renderDesign(d *domain.DesignDocument) []byte {
	var b strings.Builder

	b.WriteString("# Design: ")
	b.WriteString(d.TaskDescription)
	b.WriteString("\n\n")

	if d.Narrative != "" {
		b.WriteString(d.Narrative)
		b.WriteString("\n\n")
	}

	if len(d.Decisions) > 0 {
		b.WriteString("## Decisions\n\n")
		for _, dec := range d.Decisions {
			b.WriteString("- ")
			b.WriteString(dec)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(d.Deferred) > 0 {
		b.WriteString("## Deferred\n\n")
		for _, item := range d.Deferred {
			b.WriteString("- ")
			b.WriteString(item)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n")
	b.WriteString("Created: ")
	b.WriteString(d.CreatedAt.Format(time.RFC3339))
	b.WriteString("\n")

	return []byte(b.String())
}
