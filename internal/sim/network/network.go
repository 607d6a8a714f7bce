// Package network owns the device buses and drives the four-phase tick.
package network

import (
	"shipsim.dev/internal/sim/device"
	"shipsim.dev/internal/sim/field"
	"shipsim.dev/internal/sim/value"
)

// Network is an ordered list of devices sharing one bus of globals. The bus
// holds at most one field per case-insensitive name.
type Network struct {
	name    string
	devices []device.Device
	racks   []*device.Rack
	bus     []field.Field
}

func New(name string) *Network {
	return &Network{name: name}
}

func (n *Network) Name() string               { return n.name }
func (n *Network) Devices() []device.Device   { return n.devices }
func (n *Network) Racks() []*device.Rack      { return n.racks }
func (n *Network) Globals() []field.Field     { return field.Clone(n.bus) }
func (n *Network) snapshot() []field.Field    { return field.Clone(n.bus) }
func (n *Network) busIndex(name string) int   { return field.Find(n.bus, name) }
func (n *Network) HasGlobal(name string) bool { return n.busIndex(name) >= 0 }

// AddDevice appends d and declares each of its fields on the bus unless a
// device added earlier already declared that name.
func (n *Network) AddDevice(d device.Device) {
	n.devices = append(n.devices, d)
	if r, ok := d.(*device.Rack); ok {
		n.racks = append(n.racks, r)
	}
	for _, f := range d.Fields() {
		if n.busIndex(f.Name()) < 0 {
			n.bus = append(n.bus, *f)
		}
	}
}

// Declare adds a global or overwrites the value of an existing one.
func (n *Network) Declare(name string, v value.Value) {
	if i := n.busIndex(name); i >= 0 {
		n.bus[i].Value = v
		return
	}
	n.bus = append(n.bus, field.New(name, v))
}

func (n *Network) Global(name string) (value.Value, bool) {
	i := n.busIndex(name)
	if i < 0 {
		return value.Value{}, false
	}
	return n.bus[i].Value, true
}

// SetGlobal is host input: it updates an existing global and every device
// field of the same name. It reports false when the bus has no such name.
func (n *Network) SetGlobal(name string, v value.Value) bool {
	i := n.busIndex(name)
	if i < 0 {
		return false
	}
	n.bus[i].Value = v
	n.mirror(name, v)
	return true
}

// merge overwrites bus values whose names appear in fs. Unknown names are
// dropped. Later entries win.
func (n *Network) merge(fs []field.Field) int {
	copied := 0
	for _, f := range fs {
		if i := n.busIndex(f.Name()); i >= 0 {
			n.bus[i].Value = f.Value
			copied++
		}
	}
	return copied
}

func (n *Network) push() {
	g := n.snapshot()
	for _, r := range n.racks {
		r.UpdateGlobals(g)
	}
}

func (n *Network) step() device.StepResult {
	var total device.StepResult
	for _, r := range n.racks {
		res := r.Step()
		total.Steps += res.Steps
		total.Faults = append(total.Faults, res.Faults...)
	}
	return total
}

func (n *Network) pull() {
	for _, r := range n.racks {
		n.merge(r.Globals())
	}
}

// reflect copies bus values into same-named device fields.
func (n *Network) reflect() {
	for _, g := range n.bus {
		n.mirror(g.Name(), g.Value)
	}
}

func (n *Network) mirror(name string, v value.Value) {
	for _, d := range n.devices {
		for _, f := range d.Fields() {
			if f.Matches(name) {
				f.Value = v
			}
		}
	}
}
