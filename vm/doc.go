// Package vm implements the Argh! execution engine.
//
// This package contains:
//   - The character codec used to classify and render cell values
//   - The fixed-width program grid
//   - The input queue fed by external drivers
//   - The instruction table and its dispatcher
//   - The interpreter state machine (Running, AwaitingInput, Done, Errored)
//
// The engine performs exactly one instruction per Step call and never
// blocks: a driver polls NeedsInput, Done and Err after every step.
package vm
