package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taoyao-code/z21-gateway/internal/protocol/z21"
	"github.com/taoyao-code/z21-gateway/internal/transport"
)

// session sends cmds, prints every reply that arrives within wait (wait<=0 means
// until ctx is cancelled) and optionally logs off so the station stops broadcasting.
func session(ctx context.Context, cfg *rootConfig, p *printer, cmds []z21.Command, wait time.Duration, logoff bool) error {
	link, err := transport.Dial(cfg.linkConfig(), cfg.logger(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = link.Close() }()

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() {
		runErr <- link.Run(runCtx, func(d transport.Datagram) {
			at := d.At
			_ = p.datagram(d.Payload, d.From.String(), &at)
		})
	}()

	for _, cmd := range cmds {
		frame, err := z21.Encode(cmd)
		if err != nil {
			return err
		}
		if err := link.Send(ctx, frame); err != nil {
			return fmt.Errorf("send %s: %w", cmd.Name(), err)
		}
	}

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
	} else {
		<-ctx.Done()
	}

	if logoff {
		frame, _ := z21.Logoff{}.Encode()
		sendCtx, sendCancel := context.WithTimeout(context.Background(), time.Second)
		_ = link.Send(sendCtx, frame)
		sendCancel()
	}

	cancel()
	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, transport.ErrClosed) {
		return err
	}
	return nil
}
