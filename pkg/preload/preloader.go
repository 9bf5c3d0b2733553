package preload

import (
	"os"
	"path"
	"sort"
	"strings"

	"github.com/archsim/cachesim/pkg/simerr"
	"github.com/archsim/cachesim/pkg/simlog"
)

// Preloadable is any object that can consume a preload packet and dump its
// current contents back as one.
type Preloadable interface {
	// PreloadPacket loads data from pkt, returning false if it was not
	// consumed for some reason.
	PreloadPacket(pkt Packet) bool
	// PreloadDump emits this entity's contents into emitter under a key
	// the entity chooses itself; the caller passes no path.
	PreloadDump(emitter *Emitter)
}

// Preloader holds a descriptor hierarchy keyed by entity-path patterns and
// routes (path, packet) pairs to every matching registered entity. Entities
// are registered explicitly by their concrete path; there is no tree-node
// introspection.
type Preloader struct {
	entities map[string]Preloadable
	order    []string // registration order, for deterministic dumps
}

func NewPreloader() *Preloader {
	return &Preloader{entities: map[string]Preloadable{}}
}

// Register binds a preloadable entity to its concrete path (e.g.
// "top.core0.lsu.l1cache").
func (p *Preloader) Register(path string, entity Preloadable) {
	if _, exists := p.entities[path]; !exists {
		p.order = append(p.order, path)
	}
	p.entities[path] = entity
}

// matchPath reports whether candidate matches a '.'-segmented pattern
// where '*' matches any run of characters within one segment, e.g.
// "top.core*.l1cache" and "top.*.l1cache" both match "top.core0.l1cache".
func matchPath(pattern, candidate string) bool {
	pSegs := strings.Split(pattern, ".")
	cSegs := strings.Split(candidate, ".")
	if len(pSegs) != len(cSegs) {
		return false
	}
	for i, p := range pSegs {
		ok, err := path.Match(p, cSegs[i])
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// PreloadPacket locates every registered entity whose path matches
// pathPattern and delivers pkt to each.
func (p *Preloader) PreloadPacket(pathPattern string, pkt Packet) error {
	delivered := 0
	for _, path := range p.order {
		if !matchPath(pathPattern, path) {
			continue
		}
		entity := p.entities[path]
		simlog.Debugf("preloading %s with packet %s", path, pkt.Print())
		if !entity.PreloadPacket(pkt) {
			return simerr.Newf(simerr.ContractError, component, "entity %q did not accept its preload packet", path)
		}
		delivered++
	}
	if delivered == 0 {
		return simerr.Newf(simerr.ContractError, component, "no preloadable entity matches path %q", pathPattern)
	}
	return nil
}

// LoadYAML parses a YAML preload file and feeds every top-level entry to
// PreloadPacket.
func (p *Preloader) LoadYAML(filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return simerr.Wrap(simerr.IoError, component, "failed to open preload yaml "+filePath, err)
	}
	defer f.Close()

	pkts, err := ParseYAMLDocument(f)
	if err != nil {
		return err
	}
	paths := make([]string, 0, len(pkts))
	for path := range pkts {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if err := p.PreloadPacket(path, pkts[path]); err != nil {
			return err
		}
	}
	return nil
}

// DumpTree walks every registered entity, in registration order, calling
// PreloadDump on each, and returns the resulting Emitter — a document
// equivalent to the one that would be parsed back in, for round-trip
// tests.
func (p *Preloader) DumpTree() *Emitter {
	emitter := NewEmitter()
	for _, path := range p.order {
		entity := p.entities[path]
		simlog.Debugf("dumping preload data for %s", path)
		entity.PreloadDump(emitter)
	}
	return emitter
}
