package estimate

import "fmt"

// InsufficientDataError reports that the observation batch cannot support an
// estimate: there are no observations, or some level was never exposed so
// its choice share is undefined. It is fatal for the estimation it aborted;
// callers must drop the level or report it unobserved rather than receive a
// silently defaulted utility.
type InsufficientDataError struct {
	Attribute string
	Level     string
	Segment   string
	Reason    string
}

func (e *InsufficientDataError) Error() string {
	msg := "insufficient choice data"
	if e.Segment != "" {
		msg += fmt.Sprintf(" for segment %q", e.Segment)
	}
	if e.Attribute != "" {
		msg += fmt.Sprintf(": attribute %q", e.Attribute)
		if e.Level != "" {
			msg += fmt.Sprintf(" level %q", e.Level)
		}
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}
