// Package manifest loads and validates the manifest that declares a
// flatmap: its identity, optional taxonomic model, optional anatomical map
// and properties documents, and the ordered list of sources.
//
// Relative locations are resolved against the manifest's own directory. A
// manifest with any invalid field is rejected as a whole; every violation is
// reported as a *domain.ManifestError.
package manifest
