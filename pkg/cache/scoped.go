package cache

// ScopedKeyer prefixes every key of an inner Keyer, so several deployments
// can share one Redis database without seeing each other's layouts.
type ScopedKeyer struct {
	Keyer
	Prefix string
}

// NewScopedKeyer returns a ScopedKeyer over inner, or over a DefaultKeyer
// if inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) *ScopedKeyer {
	if inner == nil {
		inner = DefaultKeyer{}
	}
	return &ScopedKeyer{Keyer: inner, Prefix: prefix}
}

// LayoutKey implements Keyer.
func (k *ScopedKeyer) LayoutKey(graphHash string, opts LayoutKeyOpts) string {
	return k.Prefix + k.Keyer.LayoutKey(graphHash, opts)
}
