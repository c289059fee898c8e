// Package process configures, launches and supervises child processes.
//
// An Invoker resolves the executable, starts it through a Wrapper, pipes
// standard streams, waits for exit under a TimeoutPolicy and turns the exit
// into a Result. Timeouts escalate from a graceful interrupt (SIGTERM then
// SIGINT on Unix, a console Ctrl-C on Windows) to killing the whole process
// tree.
//
//	cfg, err := process.NewConfiguration("git", process.WithArguments("status --short"))
//	if err != nil {
//	    return err
//	}
//	res, err := process.NewInvoker().ExecuteBuffered(ctx, cfg, nil, true)
//
// Whether timeouts and cancellations surface as errors is controlled by the
// ExitConfiguration's ExceptionBehavior; non-zero exits are reported as
// *NotSuccessfulError unless exceptions are suppressed.
//
// Run is the small convenience entry point for one-off commands:
//
//	res, err := process.Run(ctx, process.Command{Binary: "echo", Args: []string{"hi"}})
package process
