package ast

import "github.com/chazu/lathe/pkg/fsig"

// Refresher reloads used libraries whose files changed.
type Refresher interface {
	// Refresh re-reads the library at path if needed and reports whether
	// it, or anything it uses, changed.
	Refresh(path string) bool
}

// HasDependencies reports whether the module includes or uses other files.
func (m *Module) HasDependencies() bool {
	return len(m.Includes) > 0 || len(m.Uses) > 0
}

// IncludesChanged reports whether any included file's signature differs
// from the one recorded at parse time.
func (m *Module) IncludesChanged() bool {
	for _, d := range m.Includes {
		sig, _ := fsig.Of(d.Path)
		if sig != d.Signature {
			return true
		}
	}
	return false
}

// HandleDependencies refreshes every used library and reports whether any
// of them changed. Every library is visited even after a change is found.
func (m *Module) HandleDependencies(r Refresher) bool {
	changed := false
	for _, path := range m.Uses {
		if r.Refresh(path) {
			changed = true
		}
	}
	return changed
}
