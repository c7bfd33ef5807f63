// Package pipeline provides the response processor chain.
//
// Processors run after the dialogue backend has answered and before the
// response is serialized. Each processor receives the entries produced by
// the previous one and may rewrite, merge or replace them, including by
// calling other services.
//
// # Ordering
//
// Processors are configured once at startup and run strictly in ascending
// Order. Ties keep their registration order. A processor must not reorder
// entries it does not consume.
//
// # Built-in processors
//
//   - combine_empty (order 0): folds a text entry into an immediately
//     following options entry that has no caption.
//   - command_resolver: replaces a matching command entry with the answer
//     of a remote service, for example RHEL Lightspeed.
//
// # Errors
//
// A failing processor aborts the chain. Its error is wrapped in a
// *StageError naming the processor; errors.As still reaches the
// underlying *domain.APIError.
package pipeline
