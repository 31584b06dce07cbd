package domain

// Phase is a file's position in the ingestion state machine.
//
//	discovered -> fetching -> chunk_pending -> vectorizing -> indexed
//	                 |                             |
//	                 +------------> failed <-------+
//
// Resets back to discovered (staleness, manual refetch) or chunk_pending
// (manual re-vectorize) are explicit and never happen implicitly.
type Phase string

// Ingestion phases.
const (
	PhaseDiscovered   Phase = "discovered"
	PhaseFetching     Phase = "fetching"
	PhaseChunkPending Phase = "chunk_pending"
	PhaseVectorizing  Phase = "vectorizing"
	PhaseIndexed      Phase = "indexed"
	PhaseFailed       Phase = "failed"
)

// AllPhases lists every phase in pipeline order.
var AllPhases = []Phase{
	PhaseDiscovered, PhaseFetching, PhaseChunkPending,
	PhaseVectorizing, PhaseIndexed, PhaseFailed,
}

// transitions is the nominal phase graph. Self-loops on the working phases
// cover at-least-once redelivery of the same job.
var transitions = map[Phase][]Phase{
	PhaseDiscovered:   {PhaseDiscovered, PhaseFetching, PhaseFailed},
	PhaseFetching:     {PhaseFetching, PhaseChunkPending, PhaseFailed, PhaseDiscovered},
	PhaseChunkPending: {PhaseVectorizing, PhaseDiscovered},
	PhaseVectorizing:  {PhaseVectorizing, PhaseIndexed, PhaseFailed, PhaseDiscovered},
	PhaseIndexed:      {PhaseDiscovered},
	PhaseFailed:       {PhaseDiscovered, PhaseChunkPending},
}

// Valid returns true if the phase is recognised.
func (p Phase) Valid() bool {
	_, ok := transitions[p]
	return ok
}

// Active returns true while the file is somewhere in the pipeline.
func (p Phase) Active() bool {
	switch p {
	case PhaseDiscovered, PhaseFetching, PhaseChunkPending, PhaseVectorizing:
		return true
	default:
		return false
	}
}

// Terminal returns true for phases that only an explicit reset leaves.
func (p Phase) Terminal() bool {
	return p == PhaseIndexed || p == PhaseFailed
}

// CanTransition reports whether moving from p to next follows the phase graph.
func (p Phase) CanTransition(next Phase) bool {
	for _, allowed := range transitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// String returns the string representation.
func (p Phase) String() string {
	return string(p)
}
