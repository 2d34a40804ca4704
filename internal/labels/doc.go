// Package labels decides where feature labels are drawn and remembers those
// placements between runs so that labels stay put when a map is rebuilt.
package labels
