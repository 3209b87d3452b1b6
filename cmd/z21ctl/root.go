package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/z21-gateway/internal/config"
	"github.com/taoyao-code/z21-gateway/internal/protocol/z21"
)

// exit codes
const (
	exitOK    = 0
	exitLink  = 1
	exitUsage = 2
	exitINT   = 130
)

const defaultDevice = "192.168.0.111:21105"

type rootConfig struct {
	device  string
	local   string
	timeout time.Duration
	format  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	cfg := &rootConfig{}
	return buildRootCmd(cfg)
}

func buildRootCmd(cfg *rootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "z21ctl",
		Short:         "Z21 command station LAN client",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("device") {
				if v := os.Getenv("Z21_DEVICE"); v != "" {
					cfg.device = v
				}
			}
			switch cfg.format {
			case "json", "text":
				return nil
			default:
				return fmt.Errorf("%w: unknown output format %q", z21.ErrInvalidArgument, cfg.format)
			}
		},
	}
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.AddCommand(newDecodeCmd(cfg))
	cmd.AddCommand(newSendCmd(cfg))
	cmd.AddCommand(newListenCmd(cfg))

	f := cmd.PersistentFlags()
	f.StringVarP(&cfg.device, "device", "D", defaultDevice, "command station address host:port (or Z21_DEVICE env)")
	f.StringVar(&cfg.local, "local", "", "local UDP bind address (default: any)")
	f.DurationVarP(&cfg.timeout, "timeout", "t", 2*time.Second, "how long to wait for replies")
	f.StringVarP(&cfg.format, "format", "f", "json", "output format: json, text")
	f.BoolVar(&cfg.verbose, "verbose", false, "log link activity to stderr")

	return cmd
}

// linkConfig CLI 参数 → 链路配置；单次会话不需要保活与排队
func (c *rootConfig) linkConfig() cfgpkg.Z21Config {
	return cfgpkg.Z21Config{
		DeviceAddr:     c.device,
		LocalAddr:      c.local,
		ReadBufferSize: z21.MaxDatagramSize,
		ReadTimeout:    100 * time.Millisecond,
		WriteTimeout:   time.Second,
		VerifySender:   true,
	}
}

func (c *rootConfig) logger() *zap.Logger {
	if !c.verbose {
		return zap.NewNop()
	}
	// 开发配置输出到 stderr，不与 stdout 上的解码结果混在一起
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// exitCode maps an error to the appropriate process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, z21.ErrInvalidArgument) || errors.Is(err, errBadHex) {
		return exitUsage
	}
	return exitLink
}
