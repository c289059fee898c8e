// Package resilience provides the retry and concurrency-limiting primitives
// used around process launches.
//
// Retry re-attempts an operation with exponential backoff while the error is
// marked retryable, such as a transient "text file busy" on start. Limiter
// caps how many child processes an invoker runs at once.
//
//	lim := resilience.NewLimiter(resilience.LimiterConfig{Name: "invoker", MaxConcurrent: 4})
//	err := lim.Execute(ctx, func() error {
//		_, err := resilience.Retry(ctx, resilience.DefaultRetryConfig(), start)
//		return err
//	})
package resilience
