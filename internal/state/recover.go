package state

import (
	stderrors "errors"
	"io"
	"os"
	"sort"

	"arbitragefx/internal/errors"
	"arbitragefx/internal/recorder"
	"arbitragefx/internal/schema"
	"arbitragefx/internal/strategy"
	"arbitragefx/internal/wal"
)

// RecoverConfig describes the WAL on disk to replay.
type RecoverConfig struct {
	WALDir          string
	FilePrefix      string
	DisableChecksum bool
	MaxPayloadSize  int
	// Live marks this recovery as serving a live run resuming after a
	// crash; pending PlaceIntent entries with no matching fill are
	// reopened. A backtest replay (Live=false) drops them instead, since
	// a backtest has no venue left to reconcile against.
	Live bool
	// DayOffsetSecs must match the value the original run applied via
	// strategy.StrategyParams.DayOffsetSecs, so replayed TradesToday
	// counters roll over on the same UTC-shifted boundary they did live.
	DayOffsetSecs int64
}

// RecoverResult is the outcome of replaying a WAL against its snapshots.
type RecoverResult struct {
	Registry    *Registry
	LastSeq     uint64
	LastEventTs int64
	// Pending holds PlaceIntent entries with no matching fill or cancel,
	// only populated when RecoverConfig.Live is true.
	Pending []strategy.Intent
}

type walRecord struct {
	header  schema.EventHeader
	payload []byte
}

// Recover implements the crash-recovery algorithm: it collects every WAL
// record across rotated segments in order, restores the last Snapshot
// per strategy (verifying its hash), then replays every Fill after the
// snapshot's event time, in WAL order, via strategy.ApplyFill.
//
// A truncated trailing record in the last segment (io.ErrUnexpectedEOF
// reading the final record's body or checksum) is tolerated and treated
// as the end of the usable stream: a crash mid-write leaves an
// incomplete record there and only fully-written records are considered
// durable. Any other read error, in particular a checksum mismatch
// anywhere, or a truncation in a non-final segment, is fatal and
// propagates to the caller, who must abort rather than recover a
// possibly-wrong state.
func Recover(cfg RecoverConfig) (RecoverResult, error) {
	files, err := recorder.ListSegments(cfg.WALDir, cfg.FilePrefix)
	if err != nil {
		return RecoverResult{}, errors.Wrap(err, "recover: list wal segments")
	}
	sort.Strings(files)

	records, lastSeq, lastTs, err := readAllTolerant(files, cfg.DisableChecksum, cfg.MaxPayloadSize)
	if err != nil {
		return RecoverResult{}, errors.Wrap(err, "recover: read wal")
	}

	lastSnapshot := make(map[string]Snapshot)
	lastSnapshotIdx := make(map[string]int)
	for i, rec := range records {
		if rec.header.Type != schema.EventSnapshot {
			continue
		}
		snap, derr := DecodeSnapshot(rec.payload)
		if derr != nil {
			return RecoverResult{}, errors.Wrap(derr, "recover: decode snapshot")
		}
		if err := snap.Verify(); err != nil {
			return RecoverResult{}, errors.Wrap(err, "recover: snapshot hash mismatch")
		}
		lastSnapshot[snap.StrategyID] = snap
		lastSnapshotIdx[snap.StrategyID] = i
	}

	reg := NewRegistry()
	for _, snap := range lastSnapshot {
		reg.Set(snap.State)
	}

	pendingByCOID := make(map[string]strategy.Intent)
	for i, rec := range records {
		switch rec.header.Type {
		case schema.EventWalHeader:
			ver, derr := recorder.DecodeWalHeaderVersion(rec.payload)
			if derr != nil {
				return RecoverResult{}, errors.Wrap(derr, "recover: decode wal header")
			}
			if ver != recorder.SupportedWalFormatVersion() {
				return RecoverResult{}, errors.New("recover: unsupported wal format version")
			}
		case schema.EventFill:
			fe, derr := wal.DecodeFill(rec.payload)
			if derr != nil {
				return RecoverResult{}, errors.Wrap(derr, "recover: decode fill")
			}
			delete(pendingByCOID, fe.Fill.ClientOrderID)
			sid := fe.Fill.StrategyID
			if fromIdx, ok := lastSnapshotIdx[sid]; ok && i <= fromIdx {
				continue
			}
			s := reg.GetOrCreate(sid, rec.header.TsEvent)
			strategy.ApplyFill(s, fe.Fill, cfg.DayOffsetSecs)
		case schema.EventPlaceIntent:
			pe, derr := wal.DecodePlaceIntent(rec.payload)
			if derr != nil {
				return RecoverResult{}, errors.Wrap(derr, "recover: decode place intent")
			}
			pendingByCOID[pe.Intent.ClientOrderID] = pe.Intent
		case schema.EventCancel:
			ce, derr := wal.DecodeCancel(rec.payload)
			if derr != nil {
				return RecoverResult{}, errors.Wrap(derr, "recover: decode cancel")
			}
			delete(pendingByCOID, ce.ClientOrderID)
		}
	}

	result := RecoverResult{Registry: reg, LastSeq: lastSeq, LastEventTs: lastTs}
	if cfg.Live {
		for _, intent := range pendingByCOID {
			result.Pending = append(result.Pending, intent)
		}
	}
	return result, nil
}

// readAllTolerant reads every record across files in order, tolerating a
// truncated final record in the last segment but treating any other
// error, including a truncation in an earlier segment, as fatal.
func readAllTolerant(files []string, disableChecksum bool, maxPayloadSize int) ([]walRecord, uint64, int64, error) {
	var records []walRecord
	var lastSeq uint64
	var lastTs int64

	for fi, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return nil, 0, 0, err
		}
		r := recorder.NewReader(f, recorder.ReaderOptions{
			DisableChecksum: disableChecksum,
			MaxPayloadSize:  maxPayloadSize,
		})
		isLastFile := fi == len(files)-1

	scan:
		for {
			header, payload, err := r.Next()
			switch {
			case err == nil:
				buf := make([]byte, len(payload))
				copy(buf, payload)
				records = append(records, walRecord{header: header, payload: buf})
				if header.Seq > lastSeq {
					lastSeq = header.Seq
				}
				if header.TsEvent > lastTs {
					lastTs = header.TsEvent
				}
			case stderrors.Is(err, io.EOF):
				break scan
			case stderrors.Is(err, io.ErrUnexpectedEOF) && isLastFile:
				break scan
			default:
				f.Close()
				return nil, 0, 0, err
			}
		}
		f.Close()
	}
	return records, lastSeq, lastTs, nil
}
