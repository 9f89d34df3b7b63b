package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kristi80/Datakomm-prosjekt-2022/config"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/controller"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/demand"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/factory"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/report"
	"github.com/kristi80/Datakomm-prosjekt-2022/infra/display"
	"github.com/kristi80/Datakomm-prosjekt-2022/infra/logger"
	"github.com/kristi80/Datakomm-prosjekt-2022/infra/mqtt"
	"github.com/kristi80/Datakomm-prosjekt-2022/pkg/export"
	"github.com/kristi80/Datakomm-prosjekt-2022/simulator"
)

var simOpts struct {
	out     string
	format  string
	live    bool
	display bool
}

var simulateCmd = &cobra.Command{
	Use:   "simulate <scenario.yaml>",
	Short: "Replay a demand and presence scenario",
	Long: "Replay a scenario offline and print a coverage summary, or with --live " +
		"publish it as panel inputs to the broker of a running bay.",
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.StringVarP(&simOpts.out, "out", "o", "", "write cycle records to this file")
	f.StringVar(&simOpts.format, "format", "json", "record format (csv, json, html)")
	f.BoolVar(&simOpts.live, "live", false, "publish the scenario to the configured broker")
	f.BoolVar(&simOpts.display, "display", false, "render the panel after every cycle")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	sc, err := simulator.Load(args[0])
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	cfg := config.Default()
	if cmd.Flags().Changed("config") || fileExists(cfgPath) {
		if cfg, err = config.Load(cfgPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if simOpts.live {
		return playLive(ctx, cfg, sc)
	}

	var opts simulator.Options
	if simOpts.display {
		opts.Observers = []controller.Observer{display.NewConsole(cmd.OutOrStdout(), logger.NopLogger{}, 1, cfg.Bay.UnitSize())}
	}
	recs, err := simulator.Run(ctx, sc, cfg.Bay, opts)
	if err != nil {
		return err
	}
	if simOpts.out != "" {
		write, err := export.Format(simOpts.format)
		if err != nil {
			return err
		}
		f, err := os.Create(simOpts.out)
		if err != nil {
			return err
		}
		if err := write(f, recs); err != nil {
			_ = f.Close()
			return fmt.Errorf("export: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return printSummary(cmd.OutOrStdout(), sc, report.Summarize(recs))
}

func playLive(ctx context.Context, cfg *config.Config, sc *simulator.Scenario) error {
	if !cfg.MQTTEnabled() {
		return fmt.Errorf("--live needs an mqtt broker in the configuration")
	}
	mcfg := cfg.MQTT
	mcfg.ClientID = fmt.Sprintf("bay-panel-%d", time.Now().UnixNano())
	cli, err := mqtt.NewPahoClient(ctx, mcfg, mqtt.Handlers{})
	if err != nil {
		return fmt.Errorf("mqtt client: %w", err)
	}
	defer cli.Disconnect()
	var dc struct {
		Mapping demand.Mapping `json:"mapping"`
	}
	if err := factory.Decode(cfg.Demand.Conf, &dc); err != nil {
		return fmt.Errorf("demand mapping: %w", err)
	}
	p := &simulator.Panel{Client: cli, Mapping: dc.Mapping, Log: logger.New("panel")}
	return p.Play(ctx, sc)
}

func printSummary(w io.Writer, sc *simulator.Scenario, s report.Summary) error {
	name := sc.Name
	if name == "" {
		name = "scenario"
	}
	_, err := fmt.Fprintf(w, "%s: %d cycles\n"+
		"  demand     mean %.0f  std %.0f  peak %.0f\n"+
		"  energy     discharged %d  charged %d  residual %d\n"+
		"  coverage   %.1f%%  unmet cycles %d  mean occupancy %.2f\n",
		name, s.Cycles,
		s.MeanDemand, s.StdDemand, s.PeakDemand,
		s.TotalDischarged, s.TotalCharged, s.TotalResidual,
		s.Coverage*100, s.UnmetCycles, s.MeanOccupancy)
	if err != nil {
		return err
	}
	for _, sl := range s.Slots {
		if _, err := fmt.Fprintf(w, "  slot %d     occupied %d  discharging %d  charging %d  utilisation %.2f\n",
			sl.Slot, sl.OccupiedCycles, sl.DischargeCycles, sl.ChargeCycles, sl.Utilisation); err != nil {
			return err
		}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
