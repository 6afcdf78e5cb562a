package recorder

import (
	"fmt"
	"strings"
)

// Summary describes the run for a human reader, one line per item.
func (r Result) Summary() string {
	var b strings.Builder
	if r.Transcript != "" {
		fmt.Fprintf(&b, "Heard: %s\n", r.Transcript)
	}
	for _, e := range r.Entries {
		fmt.Fprintf(&b, "Logged #%d %s, %g%s: %.0f kcal (P %.1fg C %.1fg F %.1fg)\n",
			e.ID, e.Name, e.Quantity, e.Unit, e.Calories, e.Protein, e.Carbs, e.Fat)
	}
	for _, sk := range r.Skipped {
		fmt.Fprintf(&b, "Skipped %s: %v\n", sk.Item.Name, sk.Err)
	}
	if len(r.Entries) == 0 && len(r.Skipped) == 0 {
		b.WriteString("No foods recognised.\n")
	}
	return b.String()
}
