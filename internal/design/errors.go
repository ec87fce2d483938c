package design

import "fmt"

// ConfigurationError reports invalid design parameters: bad attribute
// definitions, impossible constraints, out-of-range counts. It is fatal; the
// operation that raised it produced no output.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid design configuration: %s: %s", e.Field, e.Reason)
}

// BalanceWarning flags a design version whose quality fell short: either the
// generator exhausted its retry budget and accepted a best-effort task, or
// the version's balance score exceeded the reporting threshold. It is
// metadata, not a failure; the design remains usable.
type BalanceWarning struct {
	Version int
	Score   float64
	Penalty int
}

func (w *BalanceWarning) Error() string {
	if w.Penalty > 0 {
		return fmt.Sprintf("design version %d is best-effort: minimum-difference shortfall %d, balance score %.4f",
			w.Version, w.Penalty, w.Score)
	}
	return fmt.Sprintf("design version %d has a high balance score %.4f", w.Version, w.Score)
}
