// Package runtime wires storage, configuration, and the artifact store
// into a single handle for a traced instance. Transports and services
// receive a *Runtime instead of individual resources.
package runtime
