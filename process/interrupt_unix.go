//go:build unix

package process

import (
	"context"

	"golang.org/x/sys/unix"
)

// interruptGracefully sends SIGTERM to the process group and, if the
// process is still running after the grace period, SIGINT.
func interruptGracefully(ctx context.Context, w *Wrapper, opts WaitOptions) error {
	opts.notify(StageSigterm)
	if err := signalTree(w.pid, unix.SIGTERM); err != nil {
		return err
	}
	if sleepOrExit(ctx, w, opts.InterruptGrace) || ctx.Err() != nil {
		return nil
	}
	opts.notify(StageSigint)
	return signalTree(w.pid, unix.SIGINT)
}
