package entities

// Profile is a named set of settings, option values and environment
// variables applied to a build
type Profile struct {
	Settings map[string]string
	Options  map[string]string
	Env      map[string]string
}

// Merge overlays other onto p; values in other win
func (p *Profile) Merge(other *Profile) {
	if other == nil {
		return
	}
	p.Settings = mergeMap(p.Settings, other.Settings)
	p.Options = mergeMap(p.Options, other.Options)
	p.Env = mergeMap(p.Env, other.Env)
}

func mergeMap(dst, src map[string]string) map[string]string {
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
