package metamodel

import (
	"sort"
	"strings"
	"sync"

	"ontomap/internal/axiom"
)

// signature is the process-wide module extraction signature. It is parsed
// from its configured form on first access, exactly once, and every access
// holds mu.
type signature struct {
	mu        sync.Mutex
	raw       string
	delimiter string
	loaded    bool
	iris      map[axiom.NamedResource]struct{}
}

func newSignature(raw, delimiter string) *signature {
	return &signature{raw: raw, delimiter: delimiter}
}

// load must be called with mu held.
func (s *signature) load() {
	if s.loaded {
		return
	}
	s.iris = make(map[axiom.NamedResource]struct{})
	for _, part := range strings.Split(s.raw, s.delimiter) {
		if iri := strings.TrimSpace(part); iri != "" {
			s.iris[axiom.NamedResource(iri)] = struct{}{}
		}
	}
	s.loaded = true
}

func (s *signature) get() []axiom.NamedResource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	out := make([]axiom.NamedResource, 0, len(s.iris))
	for iri := range s.iris {
		out = append(out, iri)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *signature) add(iri axiom.NamedResource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	s.iris[iri] = struct{}{}
}
