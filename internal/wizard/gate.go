package wizard

import "fmt"

// Decision is the gate's answer for a requested step change.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Message string `json:"message,omitempty"`
}

// CanAdvance decides whether the session may move from current to target.
// Moving backward is always allowed. Moving forward evaluates, in step order,
// every rule guarding a step in (current, target]; the first failing rule's
// message is returned. The session is never modified.
func CanAdvance(def *Definition, current, target int, s *Session) Decision {
	if target < 1 || target > def.ReviewStep() {
		return Decision{Message: fmt.Sprintf("Step must be between 1 and %d", def.ReviewStep())}
	}
	if target <= current {
		return Decision{Allowed: true}
	}

	for _, rule := range def.Rules {
		if rule.Target <= current || rule.Target > target {
			continue
		}
		if !rule.Check(s) {
			return Decision{Message: rule.Message}
		}
	}
	return Decision{Allowed: true}
}

// Missing lists every unmet precondition for reaching target from step 1.
func Missing(def *Definition, target int, s *Session) []string {
	var out []string
	for _, rule := range def.Rules {
		if rule.Target > target {
			break
		}
		if !rule.Check(s) {
			out = append(out, rule.Message)
		}
	}
	return out
}
