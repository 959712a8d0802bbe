package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"phonewatch/domain/monitor"
)

// RunHeadless starts monitoring immediately and blocks until SIGINT/SIGTERM,
// then stops cooperatively and waits for the controller to reach Idle. When a
// listen address is configured the event hub is served alongside.
func RunHeadless(c *Container) error {
	c.StartEventStream()

	if err := c.Controller.Start(c.StartOptions()); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Block until a signal arrives or the controller aborts on its own.
	for {
		select {
		case <-ctx.Done():
			if err := c.Controller.Stop(); err != nil {
				// Already idle, e.g. the failure ceiling aborted the session.
				return nil
			}
			waitForIdle(c.Controller, 30*time.Second)
			return nil
		case <-time.After(250 * time.Millisecond):
			if c.Controller.Status() == monitor.StateIdle {
				// Aborted by the failure ceiling.
				return nil
			}
		}
	}
}

// waitForIdle polls until the in-flight cycle drains or the timeout passes.
// Stop is cooperative, so a pathologically slow detector call can exceed the
// timeout; in that case we exit anyway and let the process tear down.
func waitForIdle(ctrl *monitor.Controller, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if ctrl.Status() == monitor.StateIdle {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
}
