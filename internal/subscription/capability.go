package subscription

import (
	"errors"
	"fmt"
	"strings"
)

// Capability enumerates the access tiers a subscription can carry.
type Capability string

const (
	// CapabilityHourly grants access to raw hourly samples.
	CapabilityHourly Capability = "HOURLY"
	// CapabilityDaily grants access to derived daily snapshots.
	CapabilityDaily Capability = "DAILY"
)

// ErrInvalidCapability indicates an unknown subscription tier value.
var ErrInvalidCapability = errors.New("subscription: invalid capability")

// capabilityImplies is the directed dominance relation between tiers. An
// hourly subscription satisfies daily requests; the reverse never holds.
var capabilityImplies = map[Capability][]Capability{
	CapabilityHourly: {CapabilityHourly, CapabilityDaily},
	CapabilityDaily:  {CapabilityDaily},
}

// ParseCapability validates raw input and returns a Capability.
func ParseCapability(rawInput string) (Capability, error) {
	switch Capability(strings.ToUpper(strings.TrimSpace(rawInput))) {
	case CapabilityHourly:
		return CapabilityHourly, nil
	case CapabilityDaily:
		return CapabilityDaily, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCapability, rawInput)
	}
}

// Grants reports whether holding the receiver tier satisfies a request for
// the provided tier.
func (c Capability) Grants(requested Capability) bool {
	for _, implied := range capabilityImplies[c] {
		if implied == requested {
			return true
		}
	}
	return false
}

// String returns the wire representation of the capability.
func (c Capability) String() string {
	return string(c)
}
