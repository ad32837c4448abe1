// Package logx configures claimd's logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Every sink rendered as plain append-log lines: "[YYYY-MM-DD HH:MM:SS] msg"
//   - A console sink plus an append-only file sink (O_APPEND, never truncated)
//   - Sink failures invisible to callers (reported to stderr, rate-limited)
//
// The file sink has no rotation and no size cap. That is a deliberate,
// documented property of the scheduler's audit trail, not an oversight.
package logx
