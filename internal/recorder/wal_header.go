package recorder

import (
	"encoding/binary"
	"errors"
)

// walFormatVersion is the logical WAL format version stamped into the
// EventWalHeader record written first in every segment. It is distinct
// from recordVersion (record.go), which versions the per-record binary
// frame rather than the WAL's logical contents.
const walFormatVersion uint32 = 1

var ErrInvalidWalHeaderPayload = errors.New("wal header payload too short")

// SupportedWalFormatVersion returns the wal_version this build writes
// and accepts; a reader comparing it against a decoded EventWalHeader
// record can reject a segment from an incompatible future format.
func SupportedWalFormatVersion() uint32 {
	return walFormatVersion
}

func encodeWalHeaderPayload() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, walFormatVersion)
	return buf
}

// DecodeWalHeaderVersion extracts wal_version from an EventWalHeader
// record's payload.
func DecodeWalHeaderVersion(payload []byte) (uint32, error) {
	if len(payload) < 4 {
		return 0, ErrInvalidWalHeaderPayload
	}
	return binary.LittleEndian.Uint32(payload[:4]), nil
}
