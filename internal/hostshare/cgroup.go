// Package hostshare mirrors stride ticket admissions onto a real Linux
// cgroup so that a process the stride meta-scheduler has reserved CPU for
// (spec.md §4.C, the set_cpu_share syscall) also gets that share enforced
// by the host kernel when kerneld is itself running as a privileged
// process. This is a concrete stand-in for the "boot-time CPU enumeration
// and APIC lookup" / low-level collaborators spec.md §1 treats as external:
// this kernel's own scheduler accounting is simulated, but the cgroup
// bridge gives set_cpu_share an effect a reader can observe with `cat
// /sys/fs/cgroup/.../cpu.shares`.
package hostshare

import (
	"fmt"

	cgroups "github.com/containerd/cgroups"
	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Bridge binds one simulated PID to one real cgroup, scaling the stride
// ticket weight (out of MAXTICKET) to the cgroup's cpu.shares range
// (2..262144 on cgroup v1; this package targets v1 to match the teacher
// pack's containerd/cgroups v1.0.1 API).
type Bridge struct {
	parent string
	log    *logrus.Entry
	groups map[int]cgroups.Cgroup
}

// New returns a Bridge rooted at the given cgroup parent (e.g.
// "/schedcore"), or nil if mountpoint is not actually backed by a cgroup
// filesystem (v1 or v2). Callers that are not running as root, or not on
// Linux, should not construct a Bridge at all; kerneld treats hostshare as
// optional (SPEC_FULL.md §B) and logs a warning instead of failing boot.
func New(parent, mountpoint string, log *logrus.Entry) *Bridge {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if !isCgroupMount(mountpoint) {
		log.WithField("mountpoint", mountpoint).Warn("hostshare: not a cgroup filesystem, stride shares will not be enforced on the host")
		return nil
	}
	return &Bridge{
		parent: parent,
		log:    log,
		groups: make(map[int]cgroups.Cgroup),
	}
}

// isCgroupMount reports whether path is the root of a mounted cgroup v1 or
// v2 filesystem, checked with a raw statfs(2) (golang.org/x/sys/unix) rather
// than trusting a hardcoded path, since distributions differ on whether
// /sys/fs/cgroup is v1, v2, or a hybrid mount.
func isCgroupMount(path string) bool {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return false
	}
	magic := int64(st.Type)
	return magic == unix.CGROUP_SUPER_MAGIC || magic == unix.CGROUP2_SUPER_MAGIC
}

// maxShares is cgroup v1's maximum cpu.shares value.
const maxShares = 262144

// minShares is cgroup v1's minimum cpu.shares value.
const minShares = 2

// sharesFor scales a stride ticket weight (out of maxTicket) onto the
// cgroup v1 cpu.shares range.
func sharesFor(ticket, maxTicket int64) uint64 {
	if maxTicket <= 0 {
		return minShares
	}
	v := maxShares * ticket / maxTicket
	if v < minShares {
		v = minShares
	}
	if v > maxShares {
		v = maxShares
	}
	return uint64(v)
}

// Admit creates or updates the cgroup backing pid, setting cpu.shares to
// reflect the stride ticket weight just admitted by set_cpu_share.
func (b *Bridge) Admit(pid int, ticket, maxTicket int64) error {
	shares := sharesFor(ticket, maxTicket)
	res := &specs.LinuxResources{
		CPU: &specs.LinuxCPU{Shares: &shares},
	}

	cg, ok := b.groups[pid]
	if !ok {
		sub := cgroups.StaticPath(fmt.Sprintf("%s/pid-%d", b.parent, pid))
		created, err := cgroups.New(cgroups.V1, sub, res)
		if err != nil {
			return fmt.Errorf("hostshare: create cgroup for pid %d: %w", pid, err)
		}
		b.groups[pid] = created
		b.log.WithFields(logrus.Fields{"pid": pid, "shares": shares}).Info("cgroup created for stride participant")
		return nil
	}
	if err := cg.Update(res); err != nil {
		return fmt.Errorf("hostshare: update cgroup for pid %d: %w", pid, err)
	}
	b.log.WithFields(logrus.Fields{"pid": pid, "shares": shares}).Debug("cgroup shares updated")
	return nil
}

// Release tears down the cgroup backing pid, mirroring stride_delete.
func (b *Bridge) Release(pid int) error {
	cg, ok := b.groups[pid]
	if !ok {
		return nil
	}
	delete(b.groups, pid)
	if err := cg.Delete(); err != nil {
		return fmt.Errorf("hostshare: delete cgroup for pid %d: %w", pid, err)
	}
	return nil
}
