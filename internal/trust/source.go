package trust

// Source yields a point-in-time trusted-user snapshot per run. The file
// Watcher is the live implementation; Static wraps a fixed set.
type Source interface {
	Snapshot() Set
}

type staticSource struct {
	set Set
}

// Static returns a Source that always yields the same set.
func Static(s Set) Source {
	return staticSource{set: s}
}

func (s staticSource) Snapshot() Set {
	return s.set
}
