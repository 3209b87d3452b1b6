package main

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/taoyao-code/z21-gateway/internal/protocol/z21"
)

type sendConfig struct {
	dryRun bool
	logoff bool
}

// builder turns positional args and subcommand flags into a command.
type builder func(cmd *cobra.Command, args []string) (z21.Command, error)

func newSendCmd(cfg *rootConfig) *cobra.Command {
	sc := &sendConfig{}
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one command and print the replies",
	}
	f := cmd.PersistentFlags()
	f.BoolVar(&sc.dryRun, "dry-run", false, "print the encoded frame instead of sending it")
	f.BoolVar(&sc.logoff, "logoff", true, "send LAN_LOGOFF after waiting for replies")

	fixed := func(use, short string, c z21.Command) *cobra.Command {
		return newSendSubCmd(cfg, sc, use, short, cobra.NoArgs, func(*cobra.Command, []string) (z21.Command, error) {
			return c, nil
		})
	}
	cmd.AddCommand(
		fixed("serial", "LAN_GET_SERIAL_NUMBER", z21.GetSerialNumber{}),
		fixed("hwinfo", "LAN_GET_HWINFO", z21.GetHwInfo{}),
		fixed("code", "LAN_GET_CODE", z21.GetCode{}),
		fixed("version", "LAN_X_GET_VERSION", z21.GetVersion{}),
		fixed("firmware", "LAN_X_GET_FIRMWARE_VERSION", z21.GetFirmwareVersion{}),
		fixed("status", "LAN_X_GET_STATUS", z21.GetStatus{}),
		fixed("system-state", "LAN_SYSTEMSTATE_GETDATA", z21.GetSystemState{}),
		fixed("power-on", "LAN_X_SET_TRACK_POWER_ON", z21.SetTrackPowerOn{}),
		fixed("power-off", "LAN_X_SET_TRACK_POWER_OFF", z21.SetTrackPowerOff{}),
		fixed("stop", "LAN_X_SET_STOP (emergency stop all locos)", z21.SetStop{}),
		fixed("get-flags", "LAN_GET_BROADCASTFLAGS", z21.GetBroadcastFlags{}),
		fixed("subscribe", "LAN_SET_BROADCASTFLAGS", z21.SetBroadcastFlags{}),
		fixed("logoff", "LAN_LOGOFF", z21.Logoff{}),
		newSendSubCmd(cfg, sc, "loco-info <addr>", "LAN_X_GET_LOCO_INFO", cobra.ExactArgs(1), buildLocoInfo),
		newDriveCmd(cfg, sc),
		newFunctionCmd(cfg, sc),
		newSendSubCmd(cfg, sc, "turnout-info <addr>", "LAN_X_GET_TURNOUT_INFO", cobra.ExactArgs(1), buildTurnoutInfo),
		newSendSubCmd(cfg, sc, "turnout <addr> <straight|branched>", "LAN_X_SET_TURNOUT", cobra.ExactArgs(2), buildTurnout),
		newSendSubCmd(cfg, sc, "feedback <group>", "LAN_RMBUS_GETDATA", cobra.ExactArgs(1), buildFeedback),
	)
	return cmd
}

func newSendSubCmd(cfg *rootConfig, sc *sendConfig, use, short string, args cobra.PositionalArgs, build builder) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := build(cmd, args)
			if err != nil {
				return err
			}
			if sc.dryRun {
				return printFrame(cmd, c)
			}
			p := newPrinter(cmd.OutOrStdout(), cfg.format)
			return session(cmd.Context(), cfg, p, []z21.Command{c}, cfg.timeout, sc.logoff)
		},
	}
}

func newDriveCmd(cfg *rootConfig, sc *sendConfig) *cobra.Command {
	cmd := newSendSubCmd(cfg, sc, "drive <addr> <speed>", "LAN_X_SET_LOCO_DRIVE (128 steps)", cobra.ExactArgs(2), buildDrive)
	cmd.Flags().String("dir", "forward", "direction: forward, backward")
	cmd.Flags().String("stop", "none", "stop mode: none, normal, emergency")
	return cmd
}

func newFunctionCmd(cfg *rootConfig, sc *sendConfig) *cobra.Command {
	cmd := newSendSubCmd(cfg, sc, "function <addr> <fn>", "LAN_X_SET_LOCO_FUNCTION", cobra.ExactArgs(2), buildFunction)
	cmd.Flags().String("mode", "on", "function mode: off, on, switch")
	return cmd
}

func printFrame(cmd *cobra.Command, c z21.Command) error {
	frame, err := z21.Encode(c)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", c.Name(), hex.EncodeToString(frame))
	return err
}

func buildLocoInfo(_ *cobra.Command, args []string) (z21.Command, error) {
	addr, err := intArg("addr", args[0])
	if err != nil {
		return nil, err
	}
	return z21.GetLocoInfo{Address: addr}, nil
}

func buildDrive(cmd *cobra.Command, args []string) (z21.Command, error) {
	addr, err := intArg("addr", args[0])
	if err != nil {
		return nil, err
	}
	speed, err := intArg("speed", args[1])
	if err != nil {
		return nil, err
	}
	var c z21.SetLocoDrive
	c.Address, c.Speed = addr, speed
	dir, _ := cmd.Flags().GetString("dir")
	if err := c.Direction.UnmarshalText([]byte(dir)); err != nil {
		return nil, err
	}
	stop, _ := cmd.Flags().GetString("stop")
	if err := c.Stop.UnmarshalText([]byte(stop)); err != nil {
		return nil, err
	}
	return c, nil
}

func buildFunction(cmd *cobra.Command, args []string) (z21.Command, error) {
	addr, err := intArg("addr", args[0])
	if err != nil {
		return nil, err
	}
	fn, err := intArg("fn", args[1])
	if err != nil {
		return nil, err
	}
	c := z21.SetLocoFunction{Address: addr, Function: fn}
	mode, _ := cmd.Flags().GetString("mode")
	if err := c.Mode.UnmarshalText([]byte(mode)); err != nil {
		return nil, err
	}
	return c, nil
}

func buildTurnoutInfo(_ *cobra.Command, args []string) (z21.Command, error) {
	addr, err := intArg("addr", args[0])
	if err != nil {
		return nil, err
	}
	return z21.GetTurnoutInfo{Address: addr}, nil
}

func buildTurnout(_ *cobra.Command, args []string) (z21.Command, error) {
	addr, err := intArg("addr", args[0])
	if err != nil {
		return nil, err
	}
	c := z21.SetTurnout{Address: addr}
	if err := c.Position.UnmarshalText([]byte(args[1])); err != nil {
		return nil, err
	}
	return c, nil
}

func buildFeedback(_ *cobra.Command, args []string) (z21.Command, error) {
	group, err := intArg("group", args[0])
	if err != nil {
		return nil, err
	}
	return z21.GetFeedbackGroup{Group: group}, nil
}

func intArg(name, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", z21.ErrInvalidArgument, name, v)
	}
	return n, nil
}
