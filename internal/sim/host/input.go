package host

import (
	"fmt"
	"strings"

	"shipsim.dev/internal/sim/network"
	"shipsim.dev/internal/sim/value"
)

// Input is a host-side write of one bus value, given as network.Name=value.
type Input struct {
	Network string
	Name    string
	Raw     string
}

func (in Input) String() string { return in.Network + "." + in.Name + "=" + in.Raw }

func ParseInput(s string) (Input, error) {
	lhs, raw, ok := strings.Cut(s, "=")
	if !ok {
		return Input{}, fmt.Errorf("want network.Name=value, got %q", s)
	}
	net, name, ok := strings.Cut(strings.TrimSpace(lhs), ".")
	if !ok || net == "" || name == "" {
		return Input{}, fmt.Errorf("want network.Name=value, got %q", s)
	}
	return Input{Network: net, Name: name, Raw: raw}, nil
}

// Apply sets the value on the named network's bus and mirrors it into the
// matching device fields. The global must already exist.
func (in Input) Apply(ns *network.Networks) error {
	n, ok := ns.Network(in.Network)
	if !ok {
		return fmt.Errorf("%w: %s", network.ErrUnknownNetwork, in.Network)
	}
	if !n.SetGlobal(in.Name, value.Parse(in.Raw)) {
		return fmt.Errorf("network %s has no global %q", in.Network, in.Name)
	}
	return nil
}

// ApplyInputs parses and applies each input in order.
func ApplyInputs(ns *network.Networks, inputs []string) error {
	for _, s := range inputs {
		in, err := ParseInput(s)
		if err != nil {
			return err
		}
		if err := in.Apply(ns); err != nil {
			return fmt.Errorf("%s: %w", in, err)
		}
	}
	return nil
}
