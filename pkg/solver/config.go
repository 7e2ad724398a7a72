package solver

// ValueOrderingHeuristic chooses which part of a domain the search explores first.
type ValueOrderingHeuristic int

const (
	// ValueOrderSimple prefers values closest to zero. Searches are fully deterministic.
	ValueOrderSimple ValueOrderingHeuristic = iota
	// ValueOrderRandom prefers pseudo-random values drawn from RandomSeed.
	ValueOrderRandom
)

func (h ValueOrderingHeuristic) String() string {
	switch h {
	case ValueOrderSimple:
		return "simple"
	case ValueOrderRandom:
		return "random"
	}
	return "unknown"
}

// SolverConfig holds configuration for the solver.
type SolverConfig struct {
	// ValueHeuristic selects which values are tried first.
	ValueHeuristic ValueOrderingHeuristic

	// RandomSeed seeds ValueOrderRandom. Equal seeds give equal runs.
	RandomSeed int64

	// IntBound limits integer variables to [-IntBound, IntBound].
	IntBound int64

	// RealBound limits real variables to [-RealBound, RealBound].
	RealBound float64

	// NodeLimit bounds the number of search nodes per Solve call. Zero means unlimited.
	NodeLimit int

	// PropagationLimit bounds the rounds of one propagation fixed point.
	// Hitting it keeps the current (sound) domains.
	PropagationLimit int

	// MaxRounds bounds the improvement rounds of Minimize. Zero means unlimited.
	MaxRounds int
}

// DefaultSolverConfig returns the default configuration.
func DefaultSolverConfig() *SolverConfig {
	return &SolverConfig{
		ValueHeuristic:   ValueOrderSimple,
		IntBound:         1 << 31,
		RealBound:        1e9,
		NodeLimit:        20000,
		PropagationLimit: 100,
		MaxRounds:        64,
	}
}

func (c *SolverConfig) clone() *SolverConfig {
	cp := *c
	return &cp
}
