// Package safety implements the periodic safety monitor for the shared
// workspace.
//
// The monitor performs the following steps on every pass:
//	1. Take a point-in-time snapshot of the registry, so the pairwise scan
//	   never holds the registry lock.
//	2. For every unordered pair of robots, compute the Euclidean distance
//	   between their positions. A pair closer than the safe distance flags
//	   both robots for a stop; a pair inside 1.5x the safe distance is
//	   recorded as an advisory only, with no command sent.
//	3. For every robot individually, flag it if any coordinate lies within
//	   the boundary margin of a workspace edge.
//	4. For every flagged robot that is still active, send ForceStop followed
//	   by a Warning through its outbound handle and mark it inactive in the
//	   registry. A robot that is already stopped receives nothing, however
//	   long it stays in violation.
//
// Flags are per-id booleans, so a robot in violation of several rules at
// once is stopped exactly once per pass. Each pass produces a Report that
// callers can expose for observation; the most recent Report is retained.
package safety
