package network

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"shipsim.dev/internal/sim/device"
	"shipsim.dev/internal/sim/doc"
	"shipsim.dev/internal/sim/value"
)

var ErrMissingSection = errors.New("missing top-level section")

// Diagnostic describes one entry the loader skipped or adjusted.
type Diagnostic struct {
	Path    string `json:"path"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", d.Path, d.Line, d.Message)
	}
	return d.Path + ": " + d.Message
}

type LoadOptions struct {
	// BaseDir resolves relative chip script paths.
	BaseDir string
	Logger  *log.Logger
}

type loader struct {
	opts  LoadOptions
	diags []Diagnostic
}

func (l *loader) report(n doc.Node, path, format string, args ...any) {
	d := Diagnostic{Path: path, Message: fmt.Sprintf(format, args...)}
	if ln, ok := n.(interface{ Line() int }); ok {
		d.Line = ln.Line()
	}
	l.diags = append(l.diags, d)
	if l.opts.Logger != nil {
		l.opts.Logger.Printf("load: %s", d)
	}
}

// LoadFile reads a YAML (optionally .zst) document and loads it with chip
// paths resolved against the document's directory.
func LoadFile(path string, logger *log.Logger) (*Networks, []Diagnostic, error) {
	root, err := doc.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return Load(root, LoadOptions{BaseDir: filepath.Dir(path), Logger: logger})
}

// Load builds Networks from a document. Malformed networks, devices and
// relays are skipped with a Diagnostic; only a missing version or networks
// section fails the whole load.
func Load(root doc.Node, opts LoadOptions) (*Networks, []Diagnostic, error) {
	for _, key := range []string{"version", "networks"} {
		if _, ok := root.Get(key); !ok {
			return nil, nil, fmt.Errorf("%w: %s", ErrMissingSection, key)
		}
	}
	if err := doc.ValidateTop(root); err != nil {
		return nil, nil, fmt.Errorf("invalid document: %w", err)
	}

	l := &loader{opts: opts}
	ns := NewNetworks(opts.Logger)
	nets, _ := doc.GetSeq(root, "networks")
	for i, nn := range nets {
		l.network(ns, nn, fmt.Sprintf("networks[%d]", i))
	}
	relays, _ := doc.GetSeq(root, "relays")
	for i, rn := range relays {
		l.relay(ns, rn, fmt.Sprintf("relays[%d]", i))
	}
	return ns, l.diags, nil
}

func (l *loader) network(ns *Networks, nn doc.Node, path string) {
	name, err := doc.RequireStr(nn, "name")
	if err != nil || name == "" {
		l.report(nn, path, "skipped: network needs a name")
		return
	}
	devs, ok := doc.GetSeq(nn, "devices")
	if !ok {
		l.report(nn, path, "skipped network %q: no devices list", name)
		return
	}
	n := New(name)
	for j, dn := range devs {
		dpath := fmt.Sprintf("%s.devices[%d]", path, j)
		env := device.Env{
			BaseDir: l.opts.BaseDir,
			Warnf: func(format string, args ...any) {
				l.report(dn, dpath, format, args...)
			},
		}
		d, err := device.Build(dn, env)
		if err != nil {
			l.report(dn, dpath, "skipped: %v", err)
			continue
		}
		n.AddDevice(d)
	}
	if globals, ok := doc.GetMap(nn, "globals"); ok {
		for _, e := range globals {
			s, ok := e.Value.Str()
			if !ok {
				l.report(e.Value, path+".globals."+e.Key, "skipped: not a scalar")
				continue
			}
			n.Declare(e.Key, value.Parse(s))
		}
		n.reflect()
	}
	if err := ns.Add(n); err != nil {
		l.report(nn, path, "skipped: %v", err)
	}
}

func (l *loader) relay(ns *Networks, rn doc.Node, path string) {
	src, ok := relayEnd(rn, "src")
	if !ok {
		l.report(rn, path, "skipped: relay needs src name")
		return
	}
	dst, ok := relayEnd(rn, "dst")
	if !ok {
		l.report(rn, path, "skipped: relay needs dst name")
		return
	}
	if err := ns.AddRelay(src, dst); err != nil {
		l.report(rn, path, "skipped: %v", err)
	}
}

// relayEnd accepts either a network reference ({name: x}, usually an alias
// to the network entry itself) or a bare name.
func relayEnd(rn doc.Node, key string) (string, bool) {
	c, ok := rn.Get(key)
	if !ok {
		return "", false
	}
	if s, ok := c.Str(); ok && s != "" {
		return s, true
	}
	s, ok := doc.GetStr(c, "name")
	return s, ok && s != ""
}
