package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lattice-mc/lattice-mc/sim/persist"
)

var (
	logLevel   string    // Log verbosity level
	configPath string    // YAML run file
	runFlags   RunConfig // flag bindings for help output; resolveRunConfig builds the effective config

	// best command flags
	bestFolder string
	bestIndex  string
	bestLabel  string
	bestAtoms  int
	bestLimit  int

	// grid command flags
	gridFCC      string
	gridConstant float64
	gridOut      string
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "lattice-mc",
	Short: "Lattice Monte Carlo simulated annealing of metal nanoparticles",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
	},
}

// runCmd anneals one start structure for every requested repetition
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the annealing simulation",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveRunConfig(cmd, configPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		startTime := time.Now()
		summary, err := runSimulations(ctx, cfg)
		if summary != nil {
			printSummary(summary)
		}
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Infof("Simulation complete in %s.", time.Since(startTime).Round(time.Millisecond))
	},
}

// bestCmd reports the lowest-energy runs recorded in the index
var bestCmd = &cobra.Command{
	Use:   "best",
	Short: "Show the lowest-energy runs from the run index",
	Run: func(cmd *cobra.Command, args []string) {
		if err := printBest(cmd.Context(), os.Stdout, bestIndexPath(cmd.Flags().Changed("folder")), persist.Filter{Label: bestLabel, Atoms: bestAtoms}, bestLimit); err != nil {
			if errors.Is(err, persist.ErrNoRuns) {
				logrus.Warnf("no runs match")
				return
			}
			logrus.Fatalf("%v", err)
		}
	},
}

// gridCmd writes a generated fcc lattice as a grid folder
var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Generate a periodic fcc grid folder",
	Run: func(cmd *cobra.Command, args []string) {
		if err := writeGrid(gridFCC, gridConstant, gridOut); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	// A missing .env is fine; variables may come from the shell.
	_ = godotenv.Load(".env")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runFlags = defaultRunConfig()
	bindRunFlags(runCmd.Flags(), &runFlags)
	runCmd.Flags().StringVar(&configPath, "config", "", "YAML run file; flags set on the command line take precedence")

	bestCmd.Flags().StringVarP(&bestFolder, "folder", "f", "./sim/", "Output folder holding the run index")
	bestCmd.Flags().StringVar(&bestIndex, "index", "", "SQLite run index (default <folder>/"+persist.IndexFile+")")
	bestCmd.Flags().StringVar(&bestLabel, "label", "", "Only runs with this label, e.g. \"table-cn Pt\"")
	bestCmd.Flags().IntVar(&bestAtoms, "atoms", 0, "Only runs with this many atoms")
	bestCmd.Flags().IntVarP(&bestLimit, "limit", "n", 1, "Number of runs to show")

	gridCmd.Flags().StringVar(&gridFCC, "fcc", "30,30,30", "Cubic cells nx,ny,nz")
	gridCmd.Flags().Float64Var(&gridConstant, "lattice-constant", 3.92, "Lattice constant")
	gridCmd.Flags().StringVarP(&gridOut, "out", "o", "", "Output grid folder")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(bestCmd)
	rootCmd.AddCommand(gridCmd)
}
