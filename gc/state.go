package gc

import "go.uber.org/zap"

// Config holds the collector's two tunables (spec.md §6): StepMul, a
// percentage controlling how much work a single Step performs relative
// to StepSize, and Pause, a percentage of the post-cycle estimate used
// to set the next cycle's allocation threshold.
type Config struct {
	StepMul uint32
	Pause   uint32
}

// DefaultConfig returns the tunables lj_gc.c ships with (stepmul=200,
// pause=200).
func DefaultConfig() Config {
	return Config{StepMul: DefaultStepMul, Pause: DefaultPause}
}

// markOpenUpvalues is implemented by the main thread collaborator so the
// atomic phase can remark every open upvalue, mirroring gc_mark_uv —
// needed because the thread holding an open upvalue's stack slot may
// itself be dead by the time the atomic phase runs.
type markOpenUpvalues interface {
	MarkOpenUpvalues(m Marker)
}

// atomic runs the non-incremental atomic phase to completion: remark
// open upvalues, drain gray, promote weak tables back for final
// non-weak-side marking, mark the running thread/current trace/roots
// again, drain grayagain, separate and mark finalizable userdata, clear
// weak tables, then flip the current white and reset the sweep cursors.
// Mirrors atomic() in lj_gc.c.
func (c *Collector) atomic() {
	if mu, ok := c.MainThread.(markOpenUpvalues); ok {
		mu.MarkOpenUpvalues(marker{c})
	}
	c.propagateGray()

	c.Gray = c.Weak
	c.Weak = nil
	if c.RunningVM != nil {
		c.Mark(c.RunningVM)
	}
	if c.JIT != nil {
		if t, ok := c.JIT.CurrentTrace(); ok {
			c.JIT.MarkTrace(marker{c}, t)
		}
	}
	for _, r := range c.GCRoots {
		if r != nil {
			c.Mark(r)
		}
	}
	c.propagateGray()

	c.Gray = c.GrayAgain
	c.GrayAgain = nil
	c.propagateGray()

	udSize := c.SeparateUserdata(false)
	c.markMMUData()
	udSize += c.propagateGray()

	c.ClearWeak()

	c.CurrentWhite = c.otherWhite()
	c.SweepStrIdx = 0
	c.sweepCursor = &c.Root
	c.State = SweepStrings
	c.Estimate = c.Total - uint64(udSize)
}

// onestep executes at most one state transition's worth of work and
// returns a cost estimate used by step budgeting, mirroring gc_onestep.
func (c *Collector) onestep() uintptr {
	switch c.State {
	case Pause:
		c.markRoots()
		return 0
	case Propagate:
		if c.Gray != nil {
			return c.PropagateOne()
		}
		c.log.Debug("gc: entering atomic phase")
		c.atomic()
		return 0
	case SweepStrings:
		if c.Strings == nil {
			c.State = Sweep
			c.sweepCursor = &c.Root
			return 0
		}
		return c.sweepStringsStep()
	case Sweep:
		return c.sweepStep()
	case Finalize:
		if c.MMUData != nil {
			_ = c.finalizeOne()
			if c.Estimate > FinalizeCost {
				c.Estimate -= FinalizeCost
			}
			return FinalizeCost
		}
		c.State = Pause
		c.Debt = 0
		return 0
	default:
		return 0
	}
}

// Step performs a limited amount of incremental GC work, mirroring
// lj_gc_step. Returns true when a full cycle just completed.
func (c *Collector) Step() bool {
	lim := (uint64(StepSize) / 100) * uint64(c.StepMul)
	if lim == 0 {
		lim = ^uint64(0)
	}
	c.Debt += c.Total - c.Threshold
	for {
		cost := uint64(c.onestep())
		if cost > lim {
			lim = 0
		} else {
			lim -= cost
		}
		if c.State == Pause {
			c.Threshold = (c.Estimate / 100) * uint64(c.Pause)
			c.log.Debug("gc: cycle complete", zap.Uint64("threshold", c.Threshold))
			return true
		}
		if lim == 0 {
			break
		}
	}
	if c.Debt < StepSize {
		c.Threshold = c.Total + StepSize
	} else {
		c.Debt -= StepSize
		c.Threshold = c.Total
	}
	return false
}

// FullGC runs a complete collection cycle to the Pause state, mirroring
// lj_gc_fullgc. If caught mid-cycle in Pause/Propagate, it first resets
// the worklists and fast-forwards to the sweep phase (preserving the
// current white so partially-marked objects aren't miscounted), finishes
// that sweep, then runs one fresh cycle.
func (c *Collector) FullGC() {
	if c.State <= Propagate {
		c.SweepStrIdx = 0
		c.sweepCursor = &c.Root
		c.Gray = nil
		c.GrayAgain = nil
		c.Weak = nil
		c.State = SweepStrings
	}
	for c.State != Finalize {
		c.onestep()
	}
	c.markRoots()
	for c.State != Pause {
		c.onestep()
	}
	c.Threshold = (c.Estimate / 100) * uint64(c.Pause)
}
