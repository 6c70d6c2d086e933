// Package feed drives values through a stage chain from blocking or
// channel-based code. Await waits for a single traversal; Run pushes a
// channel of inputs through a root one at a time, which is how a stream is
// serialised onto one chain. The channel helpers adapt slices to channels
// and back.
package feed
