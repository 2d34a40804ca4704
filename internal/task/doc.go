// Package task runs units of pipeline work on a bounded pool of workers.
// Source parsing is submitted as one task per manifest source; the pipeline
// waits for every task to finish before composing.
package task
