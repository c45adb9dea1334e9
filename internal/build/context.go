package build

import (
	"fmt"

	"go.uber.org/zap"

	"gridopt/internal/network"
)

// Context carries the build-wide options explicitly into every variable and
// constraint routine. Each routine is pure given the network and its context;
// there are no hidden flags on shared objects.
type Context struct {
	// MultiPeriod mirrors the snapshot index: activity masks are only
	// materialized when it is set. Filled in by normalize.
	MultiPeriod bool

	// LinearizedUC relaxes commitment variables to continuous values and
	// enables the tightening inequalities where applicable.
	LinearizedUC bool

	// Tangents is the number of tangent lines used for the transmission-loss
	// outer approximation; 0 disables loss modeling entirely.
	Tangents int

	// Start and End bound the build window as a half-open snapshot range.
	// End == 0 means the full horizon. A Start past the first network
	// snapshot puts ramp and commitment constraints into rolling-horizon
	// mode, anchored against historical dispatch and status series.
	Start, End int

	Log *zap.Logger
}

func (c Context) normalize(n *network.Network) Context {
	if c.End == 0 {
		c.End = n.Snapshots().Len()
	}
	if c.Log == nil {
		c.Log = zap.NewNop()
	}
	c.MultiPeriod = n.MultiPeriod()
	return c
}

// validate rejects windows that do not address the snapshot horizon. Called
// after normalize, so End is already defaulted.
func (c Context) validate(n *network.Network) error {
	horizon := n.Snapshots().Len()
	if c.Start < 0 || c.End > horizon || c.Start >= c.End {
		return fmt.Errorf("build window [%d, %d) is out of range for %d snapshots", c.Start, c.End, horizon)
	}
	return nil
}

// window returns the absolute snapshot indices of the build window.
func (c Context) window() []int {
	sns := make([]int, 0, c.End-c.Start)
	for t := c.Start; t < c.End; t++ {
		sns = append(sns, t)
	}
	return sns
}

// rolling reports whether the window starts after the first network snapshot,
// which anchors the leading delta constraints on persisted history.
func (c Context) rolling() bool { return c.Start > 0 }
