package schema

// SchemaVersion is the current event schema version.
const SchemaVersion uint16 = 1

// EventType defines the category of an event stored in the WAL or
// carried on the in-process bus. Ordering here has no bearing on
// dispatch priority; priority class is derived separately in bus.PriorityOf.
type EventType uint16

const (
	EventUnknown EventType = iota
	EventWalHeader
	EventMarketData
	EventPlaceIntent
	EventFill
	EventCancel
	EventRiskHalt
	EventSnapshot
	EventSysTimer
	EventSysShutdown
	EventSysKillFile
)

// EventHeader is the common metadata attached to every WAL record and
// every event carried on the bus.
type EventHeader struct {
	Type    EventType
	Version uint16
	Source  uint16
	Flags   uint16
	Seq     uint64
	TsEvent int64
	TsRecv  int64
	TraceID uint64
}

// NewHeader builds a header with the current schema version.
func NewHeader(eventType EventType, source uint16, seq uint64, tsEvent, tsRecv int64) EventHeader {
	return EventHeader{
		Type:    eventType,
		Version: SchemaVersion,
		Source:  source,
		Seq:     seq,
		TsEvent: tsEvent,
		TsRecv:  tsRecv,
	}
}
