package strategy

// Strategy is the capability set the engine depends on: seed it with the
// guarded bar history once, then ask it for one signal per bar. Strategies
// must derive each signal only from bars visible through the History at the
// time Next is called.
type Strategy interface {
	// Init is called once before the first bar with the guarded history.
	Init(h *History) error

	// Next returns the signal for bar i. Indicators that lack sufficient
	// history return the zero Signal; the engine still calls Next for every
	// bar so no history is structurally skipped.
	Next(i int) Signal

	// Name returns the strategy name.
	Name() string
}

// EntryStopper is an optional capability. Strategies that implement it
// attach a protective stop to each entry; the stop spec is evaluated once
// at fill time.
type EntryStopper interface {
	OnEntry(i int, fillPrice float64) StopSpec
}
