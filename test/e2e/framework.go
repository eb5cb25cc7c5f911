// SPDX-License-Identifier: GPL-2.0 OR BSD-3-Clause

// Package e2e contains end-to-end tests that load the XDP shaper on a
// real veth pair inside network namespaces. They require root (or
// CAP_NET_ADMIN plus CAP_BPF) and a kernel with XDP generic mode, and
// skip themselves otherwise.
package e2e

import (
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/bitswing/bitswing/pkg/config"
	"github.com/bitswing/bitswing/pkg/dataplane"
	"github.com/bitswing/bitswing/pkg/limits"
	"github.com/bitswing/bitswing/pkg/testutil"
)

// Framework holds the pieces of a running end-to-end setup: the
// namespace lab, the shaper attached to the receiver veth, and the
// manager that populates its map.
type Framework struct {
	Lab *testutil.NetLab
	DP  *dataplane.DataPlane
	Mgr *limits.Manager

	t *testing.T
}

// NewFramework builds the lab and attaches the shaper to the receiver
// side of the veth pair, so traffic from the sender namespace crosses
// the shaper on ingress. Skips the test when the environment cannot
// run it.
func NewFramework(t *testing.T, cfg *config.Config) *Framework {
	t.Helper()

	if reason := testutil.CheckE2ERequirements(); reason != "" {
		t.Skip(reason)
	}
	log.SetLevel(log.WarnLevel)

	lab, err := testutil.NewNetLab()
	if err != nil {
		t.Fatalf("creating network lab: %v", err)
	}

	f := &Framework{Lab: lab, t: t}

	err = lab.RunInReceiverNS(func() error {
		dp, err := dataplane.New(lab.ReceiverVeth, "generic")
		if err != nil {
			return err
		}
		f.DP = dp
		return nil
	})
	if err != nil {
		lab.Cleanup()
		t.Fatalf("attaching shaper: %v", err)
	}

	f.Mgr = limits.NewManager(f.DP.RateLimitMap())
	if err := f.Mgr.Apply(cfg); err != nil {
		f.Teardown()
		t.Fatalf("applying rate limits: %v", err)
	}

	return f
}

// Teardown detaches the shaper and destroys the namespaces.
func (f *Framework) Teardown() {
	if f.DP != nil {
		if err := f.DP.Close(); err != nil {
			f.t.Logf("detaching shaper: %v", err)
		}
	}
	if f.Lab != nil {
		f.Lab.Cleanup()
	}
}
