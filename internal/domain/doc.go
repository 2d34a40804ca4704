// Package domain contains the flatmap entities shared by every stage of the
// map maker: the manifest and its sources, layers of features, boundary
// anchors between detail layers and base features, and label cache entries.
// It also defines the error taxonomy that stages report failures with.
package domain
