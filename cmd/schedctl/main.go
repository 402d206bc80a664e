// Command schedctl is a ps-style inspector for the scheduler core,
// grounded in arctir-proctor's process/ui packages: it boots a small
// in-process kernel, runs a scripted workload, and renders the resulting
// process table, MLFQ levels, and stride slots as a table (or, with -v, a
// full struct dump via go-spew for debugging).
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/adrg/xdg"
	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gokernel/schedcore/internal/config"
	"github.com/gokernel/schedcore/internal/kernel"
)

var (
	configFlag  string
	verboseFlag bool
	ticksFlag   int64
	forksFlag   int
	shareFlag   = percentValue(20)
)

// percentValue is a pflag.Value implementation so --percent is rejected by
// cobra's own flag parser (before runShare ever sees it) rather than by a
// second validation pass, matching set_cpu_share's own "percent <= 0"
// rejection (spec §6) one layer up at the CLI boundary.
type percentValue int64

func (p *percentValue) String() string { return strconv.FormatInt(int64(*p), 10) }

func (p *percentValue) Set(s string) error {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	if v <= 0 || v > 100 {
		return fmt.Errorf("percent must be in 1..100, got %d", v)
	}
	*p = percentValue(v)
	return nil
}

func (p *percentValue) Type() string { return "percent" }

var _ pflag.Value = (*percentValue)(nil)

func main() {
	root := &cobra.Command{
		Use:   "schedctl",
		Short: "inspect the MLFQ/stride scheduler core",
	}
	root.PersistentFlags().StringVar(&configFlag, "config", defaultConfigPath(), "tunables file")
	root.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose struct dump")

	psCmd := &cobra.Command{
		Use:   "ps",
		Short: "boot a demo kernel, fork a few children, and dump the process table",
		RunE:  runPS,
	}
	psCmd.Flags().Int64Var(&ticksFlag, "ticks", 100, "ticks to run before dumping state")
	psCmd.Flags().IntVar(&forksFlag, "forks", 3, "number of child processes to fork from init")
	root.AddCommand(psCmd)

	shareCmd := &cobra.Command{
		Use:   "share",
		Short: "boot a demo kernel, admit a stride reservation, and dump the process table",
		RunE:  runShare,
	}
	shareCmd.Flags().Int64Var(&ticksFlag, "ticks", 100, "ticks to run before dumping state")
	shareCmd.Flags().Var(&shareFlag, "percent", "percent of MAXTICKET to reserve for the forked child (1..100)")
	root.AddCommand(shareCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	p, err := xdg.ConfigFile("schedcore/tunables.toml")
	if err != nil {
		return ""
	}
	return p
}

func runPS(cmd *cobra.Command, _ []string) error {
	log := logrus.NewEntry(logrus.StandardLogger())

	cfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}

	k := kernel.New(cfg, 1, log)
	init, err := k.Boot("init")
	if err != nil {
		return err
	}

	for i := 0; i < forksFlag; i++ {
		if _, err := k.Fork(init); err != nil {
			return err
		}
	}

	cpu := k.CPUs()[0]
	for i := int64(0); i < ticksFlag; i++ {
		cpu.Step(1)
	}

	if verboseFlag {
		procs, stride := k.DebugSnapshot()
		spew.Fdump(os.Stdout, procs, stride)
		return nil
	}

	renderTable(k.Snapshot())
	return nil
}

func runShare(cmd *cobra.Command, _ []string) error {
	log := logrus.NewEntry(logrus.StandardLogger())

	cfg, err := config.Load(configFlag)
	if err != nil {
		return err
	}

	k := kernel.New(cfg, 1, log)
	init, err := k.Boot("init")
	if err != nil {
		return err
	}
	childPID, err := k.Fork(init)
	if err != nil {
		return err
	}
	child := k.Lookup(childPID)
	if err := k.SetCPUShare(child, int64(shareFlag)); err != nil {
		return fmt.Errorf("set_cpu_share(%d%%): %w", int64(shareFlag), err)
	}

	cpu := k.CPUs()[0]
	for i := int64(0); i < ticksFlag; i++ {
		cpu.Step(1)
	}

	if verboseFlag {
		procs, stride := k.DebugSnapshot()
		spew.Fdump(os.Stdout, procs, stride)
		return nil
	}
	renderTable(k.Snapshot())
	return nil
}

func renderTable(snaps []kernel.ProcSnapshot) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"PID", "NAME", "STATE", "LEVEL", "INDEX", "ELAPSED", "TICKET", "PASS", "KILLED"})
	for _, s := range snaps {
		table.Append([]string{
			fmt.Sprint(s.PID),
			s.Name,
			s.State,
			fmt.Sprint(s.Level),
			fmt.Sprint(s.Index),
			fmt.Sprint(s.Elapsed),
			fmt.Sprint(s.Ticket),
			fmt.Sprint(int64(s.Pass)),
			fmt.Sprint(s.Killed),
		})
	}
	table.Render()
}
