package workspace

// CheckoutState enumerates the states a local checkout can be in.
type CheckoutState string

// Checkout states derived from disk.
const (
	StateAbsent      CheckoutState = CheckoutState("absent")
	StateUnversioned CheckoutState = CheckoutState("unversioned")
	StateClean       CheckoutState = CheckoutState("clean")
	StateDirty       CheckoutState = CheckoutState("dirty")
)

const submodulesSuffixConstant = "+submodules"

// Observation collects the raw facts gathered about a checkout directory.
type Observation struct {
	Exists             bool
	VersionControlled  bool
	HasSubRepositories bool
	Dirty              bool
}

// Classification is the checkout state derived from an Observation.
type Classification struct {
	State               CheckoutState
	WithSubRepositories bool
}

// ClassifyCheckout derives the checkout state from observed facts without touching the disk.
func ClassifyCheckout(observation Observation) Classification {
	switch {
	case !observation.Exists:
		return Classification{State: StateAbsent}
	case !observation.VersionControlled:
		return Classification{State: StateUnversioned}
	case observation.Dirty:
		return Classification{State: StateDirty, WithSubRepositories: observation.HasSubRepositories}
	default:
		return Classification{State: StateClean, WithSubRepositories: observation.HasSubRepositories}
	}
}

// NeedsClone reports whether the checkout must be created from scratch.
func (classification Classification) NeedsClone() bool {
	return classification.State == StateAbsent || classification.State == StateUnversioned
}

// String renders the state with a submodule marker when applicable.
func (classification Classification) String() string {
	if classification.WithSubRepositories {
		return string(classification.State) + submodulesSuffixConstant
	}
	return string(classification.State)
}
