// Package scheduler runs the daemon's single loop: invoke the external job,
// log the outcome, draw a randomized delay, sleep, repeat, forever.
//
// Failure policy, in one place:
//   - job ran, exited nonzero: normal outcome. Logged, next cycle scheduled.
//   - job could not be launched (or anything else broke mid-cycle): the loop
//     enters a fixed cooldown and then tries again. No retry cap, no
//     escalation, no circuit breaker. The targeted failure mode (transient
//     launch errors) is assumed rare and self-clearing.
//
// There is no in-process timeout on an invocation: a job that hangs forever
// hangs the loop forever. Only an external signal stops the process.
package scheduler
