/*
WAL defines the tagged-union record shapes written to and read from the
append-only write-ahead log (the byte-level framing itself lives in
internal/recorder; this package owns only the payload shapes).

# Module
  - PlaceIntentEntry / FillEntry / CancelEntry / RiskHaltEntry: the
    non-snapshot WalEntry variants (Snapshot lives in internal/state)

# Source
  - the run loop, at the moment each command is about to take effect

# Produce
  - JSON-encoded payload bytes handed to internal/recorder.Writer

# Sharded
  - none; entries are strategy-tagged but the log itself is one stream
*/
package wal
