package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mensylisir/nodeforge/capability"
	"github.com/mensylisir/nodeforge/catalog"
	"github.com/mensylisir/nodeforge/common"
	"github.com/mensylisir/nodeforge/config"
	"github.com/mensylisir/nodeforge/connector"
	"github.com/mensylisir/nodeforge/executor"
	"github.com/mensylisir/nodeforge/graph"
	"github.com/mensylisir/nodeforge/logger"
	"github.com/mensylisir/nodeforge/orchestrator"
	"github.com/mensylisir/nodeforge/report"
	"github.com/mensylisir/nodeforge/runner"
	"github.com/mensylisir/nodeforge/state"
)

var (
	configPath  string
	verbose     bool
	noColor     bool
	stateDir    string
	maxAttempts int
	dryRun      bool
)

var rootCmd = &cobra.Command{
	Use:   "nodeforge",
	Short: "Declarative, resumable Kubernetes node provisioning",
	Long: `nodeforge turns a host into a Kubernetes master or worker node from a
declarative configuration. Every step is idempotent and its result is stored
durably, so an interrupted run can be resumed without redoing finished work.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "node.yaml", "Path to the node configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	provisionCmd.Flags().StringVar(&stateDir, "state-dir", "", "Override the state directory from the configuration")
	provisionCmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Override the per-step retry budget")
	provisionCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Resolve and print the plan without executing anything")

	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(statusCmd)
}

func loadConfig() (*config.NodeConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if stateDir != "" {
		cfg.Spec.StateDir = stateDir
	}
	if maxAttempts > 0 {
		cfg.Spec.MaxAttempts = maxAttempts
	}
	return cfg, nil
}

// openConnection picks the transport the configuration asks for.
func openConnection(cfg *config.NodeConfig) (connector.Connection, bool, error) {
	if ssh := cfg.Spec.SSH; ssh != nil {
		conn, err := connector.NewSSHConnection(connector.Config{
			Address:        ssh.Address,
			Port:           ssh.Port,
			User:           ssh.User,
			Password:       ssh.Password,
			PrivateKeyPath: ssh.PrivateKeyPath,
		})
		if err != nil {
			return nil, false, err
		}
		return conn, ssh.User != "root", nil
	}
	return connector.NewLocalConnection(), os.Geteuid() != 0, nil
}

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision the configured node, resuming any previous run",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logDir := filepath.Join(cfg.Spec.StateDir, "logs")
		if err := logger.InitGlobalLogger(logDir, verbose, logrus.InfoLevel); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		conn, sudo, err := openConnection(cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		caps := capability.NewShellSet(runner.NewCmdRunner(conn, sudo))
		steps := catalog.Steps(cfg, caps)

		if dryRun {
			order, err := graph.ResolveOrder(steps)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Plan for %s (role %s):\n", cfg.HostID(), cfg.Spec.Role)
			for i, name := range order {
				fmt.Fprintf(cmd.OutOrStdout(), "  %2d. %s\n", i+1, name)
			}
			return nil
		}

		lock, err := state.AcquireHostLock(cfg.Spec.StateDir, cfg.HostID())
		if err != nil {
			return err
		}
		defer lock.Release()

		store, err := state.NewFileStore(cfg.Spec.StateDir, cfg.HostID())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		entry := logger.Log.WithField(common.LogFieldApp, common.AppName)
		orch := orchestrator.New(store, executor.NewHostAdapter(entry),
			orchestrator.WithMaxAttempts(cfg.Spec.MaxAttempts),
			orchestrator.WithLogger(entry),
		)

		summary, err := orch.Run(ctx, cfg.HostID(), steps)
		if err != nil {
			return err
		}

		renderer := report.NewRenderer(report.WithColor(!noColor))
		fmt.Fprint(cmd.OutOrStdout(), renderer.Render(summary.Host, summary.Status, summary.Records, summary.Artifacts))

		if summary.Status != common.RunCompleted {
			return fmt.Errorf("run %s", summary.Status)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored provisioning state without running anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := state.NewFileStore(cfg.Spec.StateDir, cfg.HostID())
		if err != nil {
			return err
		}
		records, err := store.Snapshot()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No provisioning state for %s under %s\n", cfg.HostID(), cfg.Spec.StateDir)
			return nil
		}

		renderer := report.NewRenderer(report.WithColor(!noColor))
		fmt.Fprint(cmd.OutOrStdout(), renderer.Render(cfg.HostID(), storedRunStatus(records), records, nil))
		return nil
	},
}

// storedRunStatus derives an overall status from records alone, for runs this
// process did not perform.
func storedRunStatus(records []state.RunRecord) common.RunStatus {
	inProgress := false
	for _, rec := range records {
		switch rec.Status {
		case common.StatusFailed:
			if !strings.EqualFold(rec.LastError, state.InterruptedMessage) {
				return common.RunAborted
			}
			inProgress = true
		case common.StatusPending, common.StatusRunning:
			inProgress = true
		}
	}
	if inProgress {
		return common.RunStatus("in-progress")
	}
	return common.RunCompleted
}
