package qa

// Stats are the current academic year's approval counts at the moment a new
// approval is recorded, read from the same transaction that records it.
type Stats struct {
	Approved int
	Flagged  int
}

// Sampler decides whether a newly approved claim must be flagged for audit.
// The threshold is injected at construction; it is never read from a global.
type Sampler struct {
	ThresholdPercent int
}

func NewSampler(thresholdPercent int) Sampler {
	return Sampler{ThresholdPercent: thresholdPercent}
}

// Required reports whether the sampled fraction of this year's approvals is
// at or below the threshold. A zero threshold disables sampling; the first
// approval of the year is always sampled. Integer arithmetic keeps the
// comparison exact: flagged/approved*100 <= threshold.
func (s Sampler) Required(stats Stats) bool {
	if s.ThresholdPercent <= 0 {
		return false
	}
	if stats.Approved == 0 {
		return true
	}
	return stats.Flagged*100 <= s.ThresholdPercent*stats.Approved
}
