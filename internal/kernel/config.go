package kernel

// Tunable constants, see spec §6. Defaults match §4.D exactly. A TOML file
// loaded by internal/config can override NPROC, NTHREAD, MAXTICKET,
// MAXSTRIDE, SCALEPASS and the per-level quanta/expire in the Config a
// Kernel boots with. The process table, thread pools, MLFQ levels and stride
// slots are sized by the NPROC and NTHREAD constants below, so Config.NPROC
// and Config.NTHREAD do not change any table size.
const (
	// NPROC is the size of the process table, and also the size bound of
	// every MLFQ level array and the stride slot array (spec §3: "size N
	// equal to process-table size").
	NPROC = 64

	// NTHREAD is the number of thread slots per process.
	NTHREAD = 8

	// KSTACKSIZE is the per-thread kernel stack size in bytes.
	KSTACKSIZE = 2 * PGSIZE

	// PGSIZE is the user page size used to page-round stack growth.
	PGSIZE = 4096

	// MAXTICKET is the total scheduling weight, always conserved across
	// slot 0 (the MLFQ aggregate) and every stride participant.
	MAXTICKET = 10000

	// MAXSTRIDE is the maximum weight reservable by stride participants;
	// MAXSTRIDE < MAXTICKET so the MLFQ aggregate never starves.
	MAXSTRIDE = 8000

	// SCALEPASS is the keep-window used when rescaling pass values that
	// would otherwise overflow MAXPASS.
	SCALEPASS = 1000

	// MAXPASS bounds pass values; crossing it triggers a rescale of every
	// active slot by (MAXPASS - SCALEPASS).
	MAXPASS = 1 << 40

	// K is the number of MLFQ priority levels.
	K = 3
)

// Level quanta and demotion budgets, indexed 0..K-1. Copied into Quanta and
// Expire on Kernel construction so a loaded config can override them without
// touching these package constants.
var (
	defaultQuanta = [K]int64{5, 10, 20}
	defaultExpire = [K]int64{20, 40, 200}
)

// Config holds the tunables a Kernel boots with. The zero value is not
// valid; use DefaultConfig.
type Config struct {
	NPROC      int
	NTHREAD    int
	MAXTICKET  int64
	MAXSTRIDE  int64
	SCALEPASS  int64
	MAXPASS    int64
	Quanta     [K]int64
	Expire     [K]int64
}

// DefaultConfig returns the tunables matching spec §4.D / §6 verbatim.
func DefaultConfig() Config {
	return Config{
		NPROC:     NPROC,
		NTHREAD:   NTHREAD,
		MAXTICKET: MAXTICKET,
		MAXSTRIDE: MAXSTRIDE,
		SCALEPASS: SCALEPASS,
		MAXPASS:   MAXPASS,
		Quanta:    defaultQuanta,
		Expire:    defaultExpire,
	}
}
