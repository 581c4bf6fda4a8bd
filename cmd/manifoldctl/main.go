// Command manifoldctl is the CLI front end for the geometric associative
// memory engine: ingest text, run queries, inspect stats, and move
// snapshots in and out of a local sqlite-backed store.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/manifold-labs/manifold/internal/config"
	"github.com/manifold-labs/manifold/internal/logger"
	"github.com/manifold-labs/manifold/internal/manifold"
	"github.com/manifold-labs/manifold/internal/snapshotstore"
)

var (
	dbPath      string
	sessionName string
)

func main() {
	root := &cobra.Command{
		Use:   "manifoldctl",
		Short: "manifoldctl — geometric associative memory engine CLI",
		Long:  "Ingests text into a quaternion-embedded conscious/subconscious memory, runs drift-and-surface queries against it, and persists sessions as named snapshots.",
	}
	root.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath(), "path to the sqlite snapshot store")
	root.PersistentFlags().StringVar(&sessionName, "session", "default", "named snapshot to operate on")

	root.AddCommand(
		ingestCmd(),
		markSalientCmd(),
		queryCmd(),
		statsCmd(),
		exportCmd(),
		importCmd(),
		serveCmd(),
	)

	if err := logger.Init(loadConfig().LogLevel, ""); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "manifold.db"
	}
	return filepath.Join(home, ".manifold", "manifold.db")
}

func openStore() (*snapshotstore.Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	return snapshotstore.Open(dbPath)
}

func loadOrCreateSystem(store *snapshotstore.Store) (*manifold.System, error) {
	cfg := loadConfig()

	sys, err := store.Load(sessionName)
	if err != nil {
		seed := cfg.RNGSeed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		sys = manifold.NewSystem(seed)
	}
	applyConfig(sys, cfg)
	return sys, nil
}

// applyConfig wires the tunables a deployment may override via settings.yaml
// into sys, regardless of whether sys was freshly created or loaded from a
// saved session — a config change should take effect on the next run either
// way, since these thresholds aren't part of the snapshot wire format.
func applyConfig(sys *manifold.System, cfg *config.Config) {
	sys.Coupling = manifold.CouplingSplit{Conscious: cfg.CouplingConscious, Subconscious: cfg.CouplingSubconscious}
	sys.Theta = cfg.Theta
	sys.NovelInterferenceThreshold = cfg.NovelInterferenceThreshold
	sys.ConsciousFragmentCap = cfg.ConsciousFragmentCap
	sys.SubconsciousFragmentCap = cfg.SubconsciousFragmentCap
	sys.NovelLinkCap = cfg.NovelLinkCap
}

func loadConfig() *config.Config {
	home, _ := os.UserHomeDir()
	m := config.NewManager()
	if err := m.Load(filepath.Join(home, ".manifold"), "."); err != nil {
		logger.Warn("config load failed, using defaults", "err", err)
	}
	return m.Get()
}

func ingestCmd() *cobra.Command {
	var kind string
	var name string
	cmd := &cobra.Command{
		Use:   "ingest <text>",
		Short: "Ingest text into the conscious or subconscious manifold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			sys, err := loadOrCreateSystem(store)
			if err != nil {
				return err
			}

			k := manifold.Subconscious
			if kind == "conscious" {
				k = manifold.Conscious
			}
			episodeID, err := sys.IngestNamed(args[0], k, name)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			if err := store.Save(sessionName, sys); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			fmt.Printf("ingested into episode %s\n", episodeID)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "subconscious", "conscious or subconscious")
	cmd.Flags().StringVar(&name, "name", "", "display name for the resulting episode")
	return cmd
}

func markSalientCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mark-salient <text>",
		Short: "Ingest text directly into the conscious episode, pre-activated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			sys, err := loadOrCreateSystem(store)
			if err != nil {
				return err
			}
			if _, err := sys.MarkSalient(args[0]); err != nil {
				return fmt.Errorf("mark-salient: %w", err)
			}
			return store.Save(sessionName, sys)
		},
	}
}

func queryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <text>",
		Short: "Query the manifold: activate, drift, surface, and print the composed result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			sys, err := loadOrCreateSystem(store)
			if err != nil {
				return err
			}

			result := sys.Query(args[0])
			surfaced := sys.Surface(result)
			out := manifold.Compose(surfaced)
			if out == "" {
				out = "(nothing surfaced)"
			}
			fmt.Println(out)

			return store.Save(sessionName, sys)
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print episode, neighborhood, occurrence, and mass counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			sys, err := loadOrCreateSystem(store)
			if err != nil {
				return err
			}
			st := sys.Stats()
			fmt.Printf("episodes:      %s\n", humanize.Comma(int64(st.Episodes)))
			fmt.Printf("neighborhoods: %s\n", humanize.Comma(int64(st.Neighborhoods)))
			fmt.Printf("occurrences:   %s\n", humanize.Comma(int64(st.Occurrences)))
			fmt.Printf("documents:     %s\n", humanize.Comma(int64(st.DocCount)))
			fmt.Printf("conscious mass: %.4f\n", st.ConsciousMass)
			fmt.Printf("total mass:     %.4f\n", st.TotalMass)
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the session's snapshot to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			sys, err := loadOrCreateSystem(store)
			if err != nil {
				return err
			}
			data, err := sys.Export()
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			if err := os.WriteFile(args[0], data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", args[0], err)
			}
			fmt.Printf("wrote %s (%s)\n", args[0], humanize.Bytes(uint64(len(data))))
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load a JSON snapshot file into the named session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			sys, err := manifold.ImportSnapshot(data)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}

			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			return store.Save(sessionName, sys)
		},
	}
}

func serveCmd() *cobra.Command {
	var qps float64
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Read queries from stdin, one per line, rate-limited, printing each composed result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			sys, err := loadOrCreateSystem(store)
			if err != nil {
				return err
			}

			limiter := rate.NewLimiter(rate.Limit(qps), 1)
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				line := scanner.Text()
				if line == "" {
					continue
				}
				if err := limiter.Wait(cmd.Context()); err != nil {
					return err
				}
				result := sys.Query(line)
				fmt.Println(manifold.Compose(sys.Surface(result)))
				if err := store.Save(sessionName, sys); err != nil {
					logger.Warn("save session failed", "err", err)
				}
			}
			return scanner.Err()
		},
	}
	cmd.Flags().Float64Var(&qps, "qps", 5, "maximum queries processed per second")
	return cmd
}
