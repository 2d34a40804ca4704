// Package events reports pipeline progress without coupling the stages to
// whoever is listening.
//
// The primary components are:
// - ProgressEvent: one stage of a run starting, finishing or failing
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
//
// The pipeline emits events; LogHandler writes them to the structured log
// and the metrics package turns them into stage timings.
package events
