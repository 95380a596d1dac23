// Package engine orchestrates command execution: validation, per-room
// serialization, decision, journaling, and state folding.
package engine
