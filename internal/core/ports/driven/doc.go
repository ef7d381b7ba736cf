// Package driven defines the interfaces the core services depend on:
// the document store, the content loader registry and the chunking step.
// Adapters implement these; services consume them.
package driven
