package plugin

// State represents the lifecycle state of a plugin.
type State int

const (
	StateUninstalled State = iota // not known to the manager
	StateInstalled                // Install() succeeded
	StateActive                   // Activate() succeeded
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUninstalled:
		return "uninstalled"
	case StateInstalled:
		return "installed"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
