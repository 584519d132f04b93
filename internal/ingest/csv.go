/*
Ingest implements the candle CSV loader, the one data ingress contract
this repository owns directly. Everything downstream of "parse the
file" — live feeds, exchange WebSocket plumbing — is an external
collaborator per scope and is not implemented here.

# Module
  - LoadFile: reads a candle CSV into Candle/AuxBundle pairs

# Source
  - an 11-column CSV file, header required:
    ts,open,high,low,close,volume,funding,borrow,liq,depeg,oi

# Produce
  - []Row, each pairing a market.Candle with its market.AuxBundle

# Sharded
  - none; one file per symbol, caller assigns the symbol
*/
package ingest

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"arbitragefx/internal/errors"
	"arbitragefx/internal/market"
)

const expectedColumns = 11

var (
	ErrBadColumnCount = errors.New("ingest: wrong column count")
	ErrNonMonotonicTs = errors.New("ingest: non-monotonic ts")
)

// Row pairs a parsed candle with its auxiliary signal bundle.
type Row struct {
	Candle market.Candle
	Aux    market.AuxBundle
}

// LineError identifies the exact row that failed to parse, so the
// caller can report "file+line" per spec's input-error taxonomy.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return errors.Wrap(e.Err, "ingest: line "+strconv.Itoa(e.Line)).Error()
}

func (e *LineError) Unwrap() error { return e.Err }

// LoadFile parses every data row of r, skipping the required header.
// Rows are returned in file order; ts must be strictly increasing.
func LoadFile(r io.Reader) ([]Row, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	lineNo := 0
	if !scanner.Scan() {
		return nil, &LineError{Line: 1, Err: errors.New("ingest: empty file, header required")}
	}
	lineNo++

	var rows []Row
	var prevTs int64
	haveRows := false

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		row, err := parseLine(line)
		if err != nil {
			return nil, &LineError{Line: lineNo, Err: err}
		}
		if haveRows && row.Candle.Ts <= prevTs {
			return nil, &LineError{Line: lineNo, Err: ErrNonMonotonicTs}
		}
		prevTs = row.Candle.Ts
		haveRows = true
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func parseLine(line string) (Row, error) {
	parts := strings.Split(line, ",")
	if len(parts) != expectedColumns {
		return Row{}, ErrBadColumnCount
	}

	ts, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return Row{}, errors.Wrap(err, "ingest: bad ts")
	}
	open, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Row{}, errors.Wrap(err, "ingest: bad open")
	}
	high, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return Row{}, errors.Wrap(err, "ingest: bad high")
	}
	low, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
	if err != nil {
		return Row{}, errors.Wrap(err, "ingest: bad low")
	}
	closePrice, err := strconv.ParseFloat(strings.TrimSpace(parts[4]), 64)
	if err != nil {
		return Row{}, errors.Wrap(err, "ingest: bad close")
	}
	volume, err := strconv.ParseFloat(strings.TrimSpace(parts[5]), 64)
	if err != nil {
		return Row{}, errors.Wrap(err, "ingest: bad volume")
	}

	candle := market.Candle{Ts: ts, Open: open, High: high, Low: low, Close: closePrice, Volume: volume}

	aux := market.AuxBundle{}
	if v, ok, err := parseAuxField(parts[6]); err != nil {
		return Row{}, errors.Wrap(err, "ingest: bad funding")
	} else if ok {
		aux.HasFunding, aux.FundingRate, aux.FundingAsOf = true, v, ts
	}
	if v, ok, err := parseAuxField(parts[7]); err != nil {
		return Row{}, errors.Wrap(err, "ingest: bad borrow")
	} else if ok {
		aux.HasBorrow, aux.BorrowRate, aux.BorrowAsOf = true, v, ts
	}
	if v, ok, err := parseAuxField(parts[8]); err != nil {
		return Row{}, errors.Wrap(err, "ingest: bad liq")
	} else if ok {
		aux.HasLiquidations, aux.LiquidationScore, aux.LiquidationAsOf = true, v, ts
	}
	if v, ok, err := parseAuxField(parts[9]); err != nil {
		return Row{}, errors.Wrap(err, "ingest: bad depeg")
	} else if ok {
		aux.HasDepeg, aux.StableDepeg, aux.DepegAsOf = true, v, ts
	}
	if v, ok, err := parseAuxField(parts[10]); err != nil {
		return Row{}, errors.Wrap(err, "ingest: bad oi")
	} else if ok {
		aux.HasOpenInterest, aux.OpenInterest, aux.OpenInterestAsOf = true, v, ts
	}

	return Row{Candle: candle, Aux: aux}, nil
}

// parseAuxField lowers "NaN" and the empty field to (0, false, nil):
// missing auxiliary data is distinct from zero, and the presence flag,
// not the value, is authoritative.
func parseAuxField(field string) (float64, bool, error) {
	trimmed := strings.TrimSpace(field)
	if trimmed == "" || strings.EqualFold(trimmed, "nan") {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}
