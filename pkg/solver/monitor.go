package solver

// monitor.go: monitoring and statistics for the solver

import (
	"fmt"
	"sync"
	"time"
)

// SolverStats holds statistics about the solving process
type SolverStats struct {
	// Search statistics
	NodesExplored  int           // Number of search nodes explored
	Backtracks     int           // Number of dead ends
	SolutionsFound int           // Number of solutions found
	Dives          int           // Number of greedy dives attempted
	Rounds         int           // Number of Minimize improvement rounds
	SearchTime     time.Duration // Time spent in search
	MaxDepth       int           // Maximum branching depth reached

	// Propagation statistics
	PropagationCount int           // Number of fixed-point computations
	PropagationTime  time.Duration // Time spent in propagation
}

// SolverMonitor provides monitoring capabilities for the solver
type SolverMonitor struct {
	mu        sync.Mutex
	stats     *SolverStats
	startTime time.Time
}

// NewSolverMonitor creates a new solver monitor
func NewSolverMonitor() *SolverMonitor {
	return &SolverMonitor{
		stats:     &SolverStats{},
		startTime: time.Now(),
	}
}

// GetStats returns a copy of the current statistics
func (m *SolverMonitor) GetStats() *SolverStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := *m.stats
	return &stats
}

// RecordPropagation records one propagation fixed point and its duration
func (m *SolverMonitor) RecordPropagation(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.PropagationCount++
	m.stats.PropagationTime += d
}

// RecordBacktrack records a dead end
func (m *SolverMonitor) RecordBacktrack() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Backtracks++
}

// RecordNode records exploring a search node
func (m *SolverMonitor) RecordNode() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.NodesExplored++
}

// RecordSolution records finding a solution
func (m *SolverMonitor) RecordSolution() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.SolutionsFound++
}

// RecordDive records a greedy dive
func (m *SolverMonitor) RecordDive() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Dives++
}

// RecordRound records a Minimize improvement round
func (m *SolverMonitor) RecordRound() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Rounds++
}

// RecordDepth records the current search depth
func (m *SolverMonitor) RecordDepth(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if depth > m.stats.MaxDepth {
		m.stats.MaxDepth = depth
	}
}

// FinishSearch marks the end of the search process
func (m *SolverMonitor) FinishSearch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.SearchTime = time.Since(m.startTime)
}

// String returns a formatted string representation of the statistics
func (s *SolverStats) String() string {
	return fmt.Sprintf(
		"Solver Statistics:\n"+
			"  Search: %d nodes, %d backtracks, %d solutions, %d dives, %d rounds, %v time, max depth %d\n"+
			"  Propagation: %d ops, %v time",
		s.NodesExplored, s.Backtracks, s.SolutionsFound, s.Dives, s.Rounds, s.SearchTime, s.MaxDepth,
		s.PropagationCount, s.PropagationTime,
	)
}
