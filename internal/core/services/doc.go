// Package services holds the application core: the change tracker, index
// synchroniser, watch loop, bulk refresh coordinator and query boundary.
// Services depend only on domain types and ports; adapters are injected.
package services
