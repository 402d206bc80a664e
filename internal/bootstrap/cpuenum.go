// Package bootstrap stands in for spec.md §1's "boot-time CPU enumeration
// and APIC lookup" collaborator: on a real machine this walks ACPI/MP
// tables and programs the local APIC for each core before the dispatcher
// loops start; in user space the closest equivalent is asking the host OS
// how many usable CPUs there are, which can transiently fail under cgroup
// or container setup races, so the enumeration is retried with backoff
// rather than treated as a hard boot failure.
package bootstrap

import (
	"runtime"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
)

// EnumerateCPUs returns the number of simulated CPUs kerneld should run one
// dispatcher per. probe is the enumeration function to retry; production
// callers pass RuntimeCPUCount, tests pass a fake that fails a few times.
func EnumerateCPUs(probe func() (int, error), log *logrus.Entry) (int, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second

	var n int
	op := func() error {
		var err error
		n, err = probe()
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.WithError(err).WithField("retry_in", wait).Warn("cpu enumeration failed, retrying")
	}

	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return 0, err
	}
	return n, nil
}

// RuntimeCPUCount is the production probe: the number of logical CPUs
// visible to this process.
func RuntimeCPUCount() (int, error) {
	return runtime.NumCPU(), nil
}
