package signalsim

import "time"

// DelayPolicy computes how long a [Signal] spends servicing an entity. Higher
// priorities pass faster, down to a floor of Min.
type DelayPolicy struct {
	Min    time.Duration `json:"min"`
	Base   time.Duration `json:"base"`
	Factor time.Duration `json:"factor"`
}

// ServiceDelay returns max(Min, Base - priority*Factor).
func (p DelayPolicy) ServiceDelay(priority int) time.Duration {
	return max(p.Min, p.Base-time.Duration(priority)*p.Factor)
}
