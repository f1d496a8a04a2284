package types

// RebalancingPeriod controls how often a portfolio is reset to its target
// weights.
type RebalancingPeriod string

const (
	RebalanceNever     RebalancingPeriod = "never"
	RebalanceMonthly   RebalancingPeriod = "monthly"
	RebalanceQuarterly RebalancingPeriod = "quarterly"
	RebalanceAnnually  RebalancingPeriod = "annually"
)

// Known reports whether p is one of the supported period values. Unknown
// periods are tolerated downstream and behave like RebalanceNever.
func (p RebalancingPeriod) Known() bool {
	switch p {
	case RebalanceNever, RebalanceMonthly, RebalanceQuarterly, RebalanceAnnually:
		return true
	}
	return false
}
