// Package stage provides Stage, a chainable processing node.
//
// A stage transforms a value, synchronously or through a completion
// callback, and hands the result to the stages linked after it. The last
// value of a traversal goes to a terminal callback.
//
// Key operations:
// - New/NewSync/NewAsync: build a stage
// - Pipe/Append: link a stage and return it, so a.Pipe(b).Pipe(c) links c after b
// - Done: register the terminal callback used when Input gets none
// - Input: run a value through the chain
// - Clear: drop the linked stages
// - Extend: build factories for custom kinds of stage
//
// Traversals are logged through zerolog and traced and measured through
// OpenTelemetry when a logger, tracer or metrics are attached.
package stage
