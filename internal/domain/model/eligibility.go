package model

// Condition is one upgrade prerequisite, phrased for UI display.
type Condition struct {
	Description string `json:"description"`
	IsMet       bool   `json:"is_met"`
	// ActionRef optionally tells the client which flow satisfies the
	// condition (e.g. "agreement:sign:partner", "order:create-upgrade").
	ActionRef string `json:"action_ref,omitempty"`
}

// ActionRefUpgradePayment marks the payment prerequisite of a paid tier;
// the payment callback satisfies it out of band.
const ActionRefUpgradePayment = "order:create-upgrade"

// Eligibility is the structured result of an upgrade check. Ineligibility is
// data, not an error.
type Eligibility struct {
	CanUpgrade bool        `json:"can_upgrade"`
	Conditions []Condition `json:"conditions"`
	// RequiredPayment echoes the tier's upgrade cost so callers can
	// present it; zero for free upgrades.
	RequiredPayment int64 `json:"required_payment"`
}

// OnlyPaymentOutstanding reports whether every condition except the upgrade
// payment is met. A confirmed upgrade-order payment satisfies that last
// condition, so the callback path upgrades on this check.
func (e *Eligibility) OnlyPaymentOutstanding() bool {
	if e.CanUpgrade {
		return true
	}
	if len(e.Conditions) == 0 {
		return false
	}
	for _, c := range e.Conditions {
		if !c.IsMet && c.ActionRef != ActionRefUpgradePayment {
			return false
		}
	}
	return true
}
