// Package testutils provides fixture builders shared by package tests:
// temporary files, manifests and minimal slide decks.
package testutils
