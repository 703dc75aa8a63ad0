// Package driving defines the interfaces through which the outside
// world drives the core (primary/inbound ports). CLI and server
// adapters depend on these interfaces; core services implement them.
package driving
