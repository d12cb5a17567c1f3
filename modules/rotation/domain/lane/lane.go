// Package lane defines the workload buckets leads are rotated in.
package lane

import (
	"fmt"
	"strings"
)

// Over1kThreshold is the unit count at which a lead moves to the over-1k lane.
const Over1kThreshold = 1000

// Lane is a closed enum; the zero value is invalid.
type Lane uint8

const (
	Sub1k Lane = iota + 1
	Over1k
)

// All lists every lane in a stable order.
var All = []Lane{Sub1k, Over1k}

// ForUnits derives the lane of a lead from its unit count.
func ForUnits(unitCount int) Lane {
	if unitCount >= Over1kThreshold {
		return Over1k
	}
	return Sub1k
}

// FromOver1k maps the boolean lane flag used by callers to a Lane.
func FromOver1k(over1k bool) Lane {
	if over1k {
		return Over1k
	}
	return Sub1k
}

func (l Lane) Valid() bool {
	return l == Sub1k || l == Over1k
}

func (l Lane) IsOver1k() bool {
	return l == Over1k
}

func (l Lane) String() string {
	switch l {
	case Sub1k:
		return "sub1k"
	case Over1k:
		return "over1k"
	default:
		return fmt.Sprintf("lane(%d)", uint8(l))
	}
}

func Parse(s string) (Lane, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sub1k":
		return Sub1k, nil
	case "over1k", "1kplus":
		return Over1k, nil
	default:
		return 0, fmt.Errorf("unknown lane %q", s)
	}
}

func (l Lane) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid lane %d", uint8(l))
	}
	return []byte(l.String()), nil
}

func (l *Lane) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Target is the lane selector of a non-lead entry. Both applies the entry
// to every lane at once.
type Target uint8

const (
	TargetSub1k Target = iota + 1
	TargetOver1k
	TargetBoth
)

func TargetFor(l Lane) Target {
	if l == Over1k {
		return TargetOver1k
	}
	return TargetSub1k
}

func (t Target) Valid() bool {
	return t >= TargetSub1k && t <= TargetBoth
}

// Lanes expands the target into the concrete lanes it affects.
func (t Target) Lanes() []Lane {
	switch t {
	case TargetSub1k:
		return []Lane{Sub1k}
	case TargetOver1k:
		return []Lane{Over1k}
	case TargetBoth:
		return []Lane{Sub1k, Over1k}
	default:
		return nil
	}
}

func (t Target) Covers(l Lane) bool {
	for _, candidate := range t.Lanes() {
		if candidate == l {
			return true
		}
	}
	return false
}

func (t Target) String() string {
	switch t {
	case TargetSub1k:
		return "sub1k"
	case TargetOver1k:
		return "over1k"
	case TargetBoth:
		return "both"
	default:
		return fmt.Sprintf("target(%d)", uint8(t))
	}
}

func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sub1k":
		return TargetSub1k, nil
	case "over1k", "1kplus":
		return TargetOver1k, nil
	case "both":
		return TargetBoth, nil
	default:
		return 0, fmt.Errorf("unknown lane target %q", s)
	}
}

func (t Target) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid lane target %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *Target) UnmarshalText(b []byte) error {
	parsed, err := ParseTarget(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
