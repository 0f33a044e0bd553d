// Package tools implements the capability surface exposed to the agents.
// Every tool validates its own input and returns a tagged Result: success
// with a payload, or failure with a human-readable reason. No tool panics
// or errors past its boundary; the deciding agent sees the failure and
// chooses how to proceed.
//
// Oversized file content and command output are cut at a configured ceiling
// with an explicit marker stating the true size and how to request more.
// Nothing is silently dropped.
package tools
