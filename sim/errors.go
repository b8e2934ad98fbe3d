package sim

import (
	"fmt"
	"strings"
)

// InvariantViolation is the panic value raised when the simulation reaches a state
// that correct bookkeeping can never produce. It is never recovered inside a run.
type InvariantViolation struct {
	Invariant string
	Sites     []uint32
	Iteration int64 // -1 if outside the step loop
	Detail    string
}

func (v *InvariantViolation) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "invariant violated: %s", v.Invariant)
	if v.Iteration >= 0 {
		fmt.Fprintf(&b, " at iteration %d", v.Iteration)
	}
	if len(v.Sites) > 0 {
		fmt.Fprintf(&b, " (sites %v)", v.Sites)
	}
	if v.Detail != "" {
		b.WriteString(": ")
		b.WriteString(v.Detail)
	}
	return b.String()
}

func violate(invariant string, iter int64, detail string, sites ...uint32) {
	panic(&InvariantViolation{Invariant: invariant, Sites: sites, Iteration: iter, Detail: detail})
}
