package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/kristi80/Datakomm-prosjekt-2022/config"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
	"github.com/kristi80/Datakomm-prosjekt-2022/infra/mqtt"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle <slot>",
	Short: "Flip presence of a slot on a running bay",
	Args:  cobra.ExactArgs(1),
	RunE:  runToggle,
}

func init() {
	rootCmd.AddCommand(toggleCmd)
}

func runToggle(cmd *cobra.Command, args []string) error {
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return fmt.Errorf("slot must be a positive number, got %q", args[0])
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.MQTTEnabled() {
		return fmt.Errorf("no mqtt broker configured")
	}
	if n > cfg.Bay.Slots {
		return fmt.Errorf("slot %d outside 1..%d", n, cfg.Bay.Slots)
	}
	mcfg := cfg.MQTT
	if mcfg.ClientID != "" {
		mcfg.ClientID = fmt.Sprintf("%s-toggle-%d", mcfg.ClientID, time.Now().UnixNano())
	} else {
		mcfg.ClientID = fmt.Sprintf("bay-toggle-%d", time.Now().UnixNano())
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	cli, err := mqtt.NewPahoClient(ctx, mcfg, mqtt.Handlers{})
	if err != nil {
		return fmt.Errorf("mqtt client: %w", err)
	}
	defer cli.Disconnect()
	slot := model.SlotFromNumber(n)
	if err := cli.PublishToggle(slot); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "toggled %s\n", slot)
	return err
}
