package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/control"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/orchestrator"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/standby"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/consts"
	serrors "github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/errors"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/logger"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/protocol"
)

var (
	cfgFile    string
	socketPath string
)

var rootCmd = &cobra.Command{
	Use:           "standbyd",
	Short:         "standbyd: device power-standby manager",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the standby daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Load Config
		cfg, err := LoadConfig(cfgFile)
		if err != nil {
			return err
		}

		// 2. Init Logger
		logger.InitLogger(cfg.Observability.LogLevel)
		logger.Log.Info("Booting standby engine...", "service", cfg.Service.Name)

		// 3. Run Engine
		engine, err := orchestrator.NewEngine(cfg, nil)
		if err != nil {
			return err
		}
		return engine.Run(context.Background())
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the state of a running daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := control.Request(resolveSocket(), protocol.ControlRequest{Command: "dump"})
		if err != nil {
			return err
		}
		return printSnapshot(cmd.OutOrStdout(), resp.Snapshot)
	},
}

var eventCmd = &cobra.Command{
	Use:       "event <name>",
	Short:     "Inject a system event into a running daemon",
	Long:      "Inject a system event: " + strings.Join(eventNames(), ", "),
	Args:      cobra.ExactArgs(1),
	ValidArgs: eventNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := control.Request(resolveSocket(), protocol.ControlRequest{Command: "event", Event: args[0]}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "event %s delivered\n", args[0])
		return nil
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the valid transitions between standby states",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printGraph(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "standbyd.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", "", "control socket path (default: from config)")
	rootCmd.AddCommand(startCmd, dumpCmd, eventCmd, graphCmd)
}

// LoadConfig reads the daemon YAML configuration.
func LoadConfig(path string) (*protocol.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, serrors.New(serrors.ErrCodeConfigMissing, "LoadConfig", "cannot read "+path, err)
	}
	var cfg protocol.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, serrors.New(serrors.ErrCodeConfigInvalid, "LoadConfig", "cannot parse "+path, err)
	}
	return &cfg, nil
}

// resolveSocket prefers --socket, then the config file, then the default path.
func resolveSocket() string {
	if socketPath != "" {
		return socketPath
	}
	if cfg, err := LoadConfig(cfgFile); err == nil && cfg.Control.SocketPath != "" {
		return cfg.Control.SocketPath
	}
	return consts.DefaultControlSocket
}

func eventNames() []string {
	return []string{
		string(consts.EventScreenOn),
		string(consts.EventScreenOff),
		string(consts.EventCharging),
		string(consts.EventDischarging),
		string(consts.EventUserActivity),
		string(consts.EventUnblock),
	}
}

func printSnapshot(w io.Writer, snap *protocol.Snapshot) error {
	if snap == nil {
		return serrors.New(serrors.ErrCodeControlFailed, "dump", "daemon returned no snapshot", nil)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func printGraph(w io.Writer) {
	g := standby.Graph()
	for _, from := range consts.AllStates {
		dests := g.Destinations(from)
		names := make([]string, 0, len(dests))
		for _, to := range dests {
			names = append(names, to.String())
		}
		fmt.Fprintf(w, "%-12s -> %s\n", from, strings.Join(names, ", "))
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Personal.AI order the ending
