// Package room holds the room aggregate: its state, the pure decider that
// turns commands into events, the fold that applies events back onto state,
// and the derived-state rules (consensus, card matching, story selection).
package room
