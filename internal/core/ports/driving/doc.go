// Package driving defines the interfaces through which the outside world
// drives the core: the watch loop, the bulk refresh coordinator and the
// query boundary. CLI and MCP adapters consume these.
package driving
