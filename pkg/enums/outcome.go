package enums

// OutcomeKind tells the terminal what to render after a buy string was submitted.
type OutcomeKind string

const (
	// OutcomeNone means nothing was typed; the terminal just re-renders.
	OutcomeNone OutcomeKind = "none"
	// OutcomeMenu means only the identity was typed; the member menu opens.
	OutcomeMenu OutcomeKind = "menu"
	// OutcomeSale means an order was committed.
	OutcomeSale OutcomeKind = "sale"
)

// String implements fmt.Stringer.
func (k OutcomeKind) String() string {
	return string(k)
}
