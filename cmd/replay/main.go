package main

import (
	"context"
	"flag"
	"log"
	"os"

	pyroscope "github.com/grafana/pyroscope-go"

	"arbitragefx/internal/engine"
	"arbitragefx/internal/recorder"
	"arbitragefx/internal/schema"
	"arbitragefx/internal/state"
)

const (
	exitOK            = 0
	exitFatal         = 1
	exitWALCorruption = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	walDir := flag.String("wal-dir", "", "WAL directory to replay (required)")
	filePrefix := flag.String("file-prefix", "", "WAL segment file prefix (default: wal)")
	speed := flag.Float64("speed", 0, "Playback speed (1=real-time, 0=no pacing)")
	useRecvTime := flag.Bool("use-recv-time", false, "Pace by receive timestamp instead of event timestamp")
	disableChecksum := flag.Bool("no-checksum", false, "Disable record checksum validation")
	maxPayloadSize := flag.Int("max-payload-size", 0, "Max payload size in bytes (0=unlimited)")
	live := flag.Bool("live", false, "Treat this replay as live-recovery: reopen pending intents instead of dropping them")
	dayOffsetSecs := flag.Int64("day-offset-secs", 0, "UTC seconds offset used to derive the trade day boundary (must match the original run's DAY_OFFSET_SECS)")
	flag.Parse()

	if *walDir == "" {
		log.Printf("replay: -wal-dir is required")
		return exitFatal
	}

	if stop, err := startProfiling("arbitragefx.replay"); err != nil {
		log.Printf("replay: pyroscope start failed: %v", err)
	} else if stop != nil {
		defer stop()
	}

	recovered, err := state.Recover(state.RecoverConfig{
		WALDir:          *walDir,
		FilePrefix:      *filePrefix,
		DisableChecksum: *disableChecksum,
		MaxPayloadSize:  *maxPayloadSize,
		Live:            *live,
		DayOffsetSecs:   *dayOffsetSecs,
	})
	if err != nil {
		log.Printf("replay: recover failed: %v", err)
		return exitWALCorruption
	}

	log.Printf("replay: recovered strategies=%v last_seq=%d last_event_ts=%d pending=%d",
		recovered.Registry.IDs(), recovered.LastSeq, recovered.LastEventTs, len(recovered.Pending))
	for _, id := range recovered.Registry.IDs() {
		s, ok := recovered.Registry.Get(id)
		if !ok {
			continue
		}
		log.Printf("replay: strategy=%s position=%.8f equity=%.8f realized_pnl=%.8f",
			id, s.Position, s.Equity, s.RealizedPnl)
	}

	if *speed >= 0 {
		if err := replayTimeline(*walDir, *filePrefix, *speed, *useRecvTime, *disableChecksum, *maxPayloadSize); err != nil {
			log.Printf("replay: timeline playback failed: %v", err)
			return exitWALCorruption
		}
	}

	return exitOK
}

// replayTimeline walks every record in WAL order at the requested pace,
// counting events per type: a lightweight audit pass distinct from
// state.Recover's forward scan that keeps the last snapshot per strategy.
func replayTimeline(dir, prefix string, speed float64, useRecvTime, disableChecksum bool, maxPayloadSize int) error {
	pb, err := recorder.NewPlayback(recorder.PlaybackConfig{
		Dir:             dir,
		FilePrefix:      prefix,
		Speed:           speed,
		UseRecvTime:     useRecvTime,
		DisableChecksum: disableChecksum,
		MaxPayloadSize:  maxPayloadSize,
	})
	if err != nil {
		return err
	}

	ctx, cancel := engine.ShutdownContext(context.Background())
	defer cancel()

	counts := make(map[schema.EventType]int)
	total := 0
	err = pb.Run(ctx, func(header schema.EventHeader, _ []byte) error {
		total++
		counts[header.Type]++
		return nil
	})
	if err != nil {
		return err
	}
	log.Printf("replay: timeline total=%d counts=%v", total, counts)
	return nil
}

// startProfiling starts continuous profiling against PYROSCOPE_SERVER
// when set, returning a stop func; it is a no-op (nil stop, nil error)
// when the env var is unset.
func startProfiling(appName string) (func(), error) {
	addr := os.Getenv("PYROSCOPE_SERVER")
	if addr == "" {
		return nil, nil
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: appName,
		ServerAddress:   addr,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = profiler.Stop() }, nil
}
