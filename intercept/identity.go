package intercept

// Identity returns a Pipeline whose TX and RX hooks are no-ops, installed
// when the intercept mechanism is wired in but no transform is needed (e.g.
// a module without chip-to-chip support).
func Identity() Pipeline {
	pass := func(src []byte) ([]byte, error) { return src, nil }
	return Pipeline{TX: pass, RX: pass}
}
