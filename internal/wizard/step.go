package wizard

import (
	"fmt"
	"strings"
)

// Step is one section of the intake wizard. Steps run in declaration order.
type Step int

const (
	StepOrigin Step = iota
	StepDestination
	StepServices
	StepSchedule
	StepContact
)

const LastStep = StepContact

var stepNames = [...]string{
	StepOrigin:      "origin",
	StepDestination: "destination",
	StepServices:    "services",
	StepSchedule:    "schedule",
	StepContact:     "contact",
}

func (s Step) String() string {
	if s < StepOrigin || s > LastStep {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

func (s Step) Valid() bool {
	return s >= StepOrigin && s <= LastStep
}

// ParseStep accepts a step name or its index.
func ParseStep(v string) (Step, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	for i, name := range stepNames {
		if name == v || fmt.Sprint(i) == v {
			return Step(i), true
		}
	}
	return 0, false
}

func Steps() []Step {
	out := make([]Step, 0, len(stepNames))
	for i := range stepNames {
		out = append(out, Step(i))
	}
	return out
}
