// Package component manages the lifecycle of the long-lived resources a
// procinvoke command sets up around its invocations, such as the telemetry
// exporters and the invocation journal.
//
// Components are started in registration order and stopped in reverse.
package component
