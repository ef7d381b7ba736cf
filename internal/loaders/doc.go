// Package loaders implements the content classification pipeline: deciding
// whether a file is indexable at all, which loader kind applies, and
// dispatching to the kind's loader. Loaders themselves live in subpackages
// and are pure transforms from bytes to a normalised payload.
package loaders
