// Command kerneld boots a simulated kernel (process table + MLFQ + stride
// meta-scheduler + per-CPU dispatchers) and exposes an interactive REPL for
// driving it: fork, kill, share, ps, and advancing the simulated clock.
// Subcommand dispatch follows the teacher pack's runsc/cli, built on
// github.com/google/subcommands.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"

	"github.com/gokernel/schedcore/internal/bootstrap"
	"github.com/gokernel/schedcore/internal/config"
	"github.com/gokernel/schedcore/internal/console"
	"github.com/gokernel/schedcore/internal/hostshare"
	"github.com/gokernel/schedcore/internal/kernel"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&runCmd{}, "")
	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}

// runCmd implements subcommands.Command for "run": boot the kernel and
// enter the REPL.
type runCmd struct {
	configPath  string
	pidfile     string
	cgroup      string
	cgroupMount string
	realtimeHz  float64
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "boot the kernel and enter the debug REPL" }
func (*runCmd) Usage() string    { return "run [flags]\n" }

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.configPath, "config", "", "path to a TOML tunables file (optional)")
	f.StringVar(&r.pidfile, "pidfile", "/tmp/kerneld.pid", "pidfile lock path")
	f.StringVar(&r.cgroup, "cgroup", "", "cgroup parent for stride share enforcement (optional, needs root)")
	f.StringVar(&r.cgroupMount, "cgroup-mount", "/sys/fs/cgroup", "host cgroup filesystem mountpoint")
	f.Float64Var(&r.realtimeHz, "realtime-hz", 0, "if >0, drive every CPU's dispatcher loop at this tick rate in the background instead of via the REPL's tick command")
}

func (r *runCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	log := logrus.NewEntry(logrus.StandardLogger())

	fl := flock.New(r.pidfile)
	locked, err := fl.TryLock()
	if err != nil || !locked {
		log.WithError(err).Error("another kerneld instance already holds the pidfile lock")
		return subcommands.ExitFailure
	}
	defer fl.Unlock()

	cfg, err := config.Load(r.configPath)
	if err != nil {
		log.WithError(err).Error("loading config")
		return subcommands.ExitFailure
	}

	ncpu, err := bootstrap.EnumerateCPUs(bootstrap.RuntimeCPUCount, log)
	if err != nil {
		log.WithError(err).Error("enumerating cpus")
		return subcommands.ExitFailure
	}
	log.WithField("ncpu", ncpu).Info("enumerated cpus")

	k := kernel.New(cfg, ncpu, log)
	if _, err := k.Boot("init"); err != nil {
		log.WithError(err).Error("booting init")
		return subcommands.ExitFailure
	}

	var bridge *hostshare.Bridge
	if r.cgroup != "" {
		bridge = hostshare.New(r.cgroup, r.cgroupMount, log)
	}

	con, err := console.New()
	if err != nil {
		log.WithError(err).Error("opening console")
		return subcommands.ExitFailure
	}
	defer con.Close()

	var cancelRealtime context.CancelFunc
	if r.realtimeHz > 0 {
		var rctx context.Context
		rctx, cancelRealtime = context.WithCancel(context.Background())
		ts := kernel.NewTickSource(r.realtimeHz)
		for _, cpu := range k.CPUs() {
			cpu := cpu
			go func() {
				if err := ts.Run(rctx, cpu); err != nil && rctx.Err() == nil {
					log.WithError(err).Warn("realtime tick source stopped")
				}
			}()
		}
		defer cancelRealtime()
		fmt.Fprintf(con, "dispatchers running in the background at %.1f Hz; 'tick' is disabled\n", r.realtimeHz)
	}

	repl(k, bridge, con, log, r.realtimeHz > 0)
	return subcommands.ExitSuccess
}

// repl is a tiny line-oriented command loop: ps, fork <name>, kill <pid>,
// share <pid> <percent>, tick <n>, quit. If realtime is true the CPUs are
// already being driven by a background TickSource and "tick" is rejected.
func repl(k *kernel.Kernel, bridge *hostshare.Bridge, con *console.Console, log *logrus.Entry, realtime bool) {
	fmt.Fprintln(con, "kerneld ready. commands: ps, fork <name>, kill <pid>, share <pid> <percent>, tick <n>, quit")
	scanner := bufio.NewScanner(os.Stdin)

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "quit", "exit":
			return
		case "ps":
			printPS(con, k)
		case "fork":
			parent := k.Lookup(1)
			if parent == nil {
				fmt.Fprintln(con, "init process missing")
				continue
			}
			pid, err := k.Fork(parent)
			if err != nil {
				fmt.Fprintln(con, "error:", err)
				continue
			}
			fmt.Fprintln(con, "forked pid", pid)
		case "kill":
			if len(fields) < 2 {
				fmt.Fprintln(con, "usage: kill <pid>")
				continue
			}
			pid, _ := strconv.Atoi(fields[1])
			if err := k.Kill(pid); err != nil {
				fmt.Fprintln(con, "error:", err)
			}
		case "share":
			if len(fields) < 3 {
				fmt.Fprintln(con, "usage: share <pid> <percent>")
				continue
			}
			pid, _ := strconv.Atoi(fields[1])
			percent, _ := strconv.ParseInt(fields[2], 10, 64)
			p := k.Lookup(pid)
			if p == nil {
				fmt.Fprintln(con, "unknown pid", pid)
				continue
			}
			if err := k.SetCPUShare(p, percent); err != nil {
				fmt.Fprintln(con, "error:", err)
				continue
			}
			if bridge != nil {
				_ = bridge.Admit(pid, k.StrideTicket(p), k.MaxTicket())
			}
		case "tick":
			if realtime {
				fmt.Fprintln(con, "dispatchers are running in the background; tick is disabled")
				continue
			}
			n := int64(1)
			if len(fields) > 1 {
				if v, err := strconv.ParseInt(fields[1], 10, 64); err == nil {
					n = v
				}
			}
			if err := k.RunTicks(context.Background(), n); err != nil {
				log.WithError(err).Warn("tick")
			}
		default:
			fmt.Fprintln(con, "unknown command:", fields[0])
		}
	}
}

func printPS(con *console.Console, k *kernel.Kernel) {
	for _, p := range k.Snapshot() {
		fmt.Fprintf(con, "pid=%-4d name=%-10s state=%-9s level=%-2d index=%-3d elapsed=%-6d killed=%v\n",
			p.PID, p.Name, p.State, p.Level, p.Index, p.Elapsed, p.Killed)
	}
}
