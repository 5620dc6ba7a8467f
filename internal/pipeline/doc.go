// Package pipeline runs the provisioning stages for a single target.
//
// A target moves Pending -> Synced -> Installed -> Configured -> Launched,
// or to Failed at the first stage that returns an error. Stages never run
// out of order and a failed stage is not retried. With a StageTimeout set,
// each stage runs under its own deadline and a stage that overruns fails
// with ErrTimeout.
//
// The concrete stages live in the provision package; fan-out across many
// targets lives in the fleet package.
package pipeline
