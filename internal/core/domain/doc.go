// Package domain contains the core types for meiliwatch: documents, loader
// kinds, index naming, refresh bookkeeping and configuration. It has no
// dependencies on adapters or external services.
package domain
