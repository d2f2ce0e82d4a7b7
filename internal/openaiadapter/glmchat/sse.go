package glmchat

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"
)

// Recognized SSE field names. Anything else is ignored per the wire contract.
const (
	fieldData  = "data"
	fieldEvent = "event"
	fieldID    = "id"
	fieldRetry = "retry"
)

// rawEvent is one decoded SSE record. For data records, IsJSON reports
// whether Value parsed as JSON; a data line that fails to parse is still
// surfaced so the decoder can recover it.
type rawEvent struct {
	Field  string
	Value  string
	IsJSON bool  // data records only
	Retry  int64 // retry records only
}

// eventScanner lexes an SSE byte stream into records. It is a forward-only,
// single-pass view over the reader: records are produced strictly in arrival
// order and the scanner never reads further ahead than the next complete
// line requires.
//
// The scanner does not close the reader; the owning run does.
type eventScanner struct {
	r       io.Reader
	buf     []byte
	pending string // trailing partial line carried across reads
	queue   []rawEvent
	err     error
	eof     bool
}

func newEventScanner(r io.Reader) *eventScanner {
	return &eventScanner{
		r:   r,
		buf: make([]byte, 16*1024),
	}
}

// Next returns the next record, suspending on the underlying reader when the
// current buffer holds no complete line. It returns false at end of stream
// or on a read fault; Err distinguishes the two.
func (s *eventScanner) Next() (rawEvent, bool) {
	for {
		if len(s.queue) > 0 {
			ev := s.queue[0]
			s.queue = s.queue[1:]
			return ev, true
		}
		if s.eof || s.err != nil {
			return rawEvent{}, false
		}

		n, err := s.r.Read(s.buf)
		if n > 0 {
			s.pending += string(s.buf[:n])
			s.splitLines()
		}
		if err != nil {
			if err == io.EOF {
				// An unterminated trailing partial line is discarded: a
				// split line is never treated as complete.
				s.eof = true
			} else {
				s.err = err
			}
		}
	}
}

// Err reports a reader fault encountered mid-stream. It is nil after a
// normal end of stream.
func (s *eventScanner) Err() error {
	return s.err
}

// splitLines drains every complete line from the pending buffer, retaining
// the last (possibly incomplete) line for the next read.
func (s *eventScanner) splitLines() {
	for {
		nl := strings.IndexByte(s.pending, '\n')
		if nl < 0 {
			return
		}
		line := strings.TrimSuffix(s.pending[:nl], "\r")
		s.pending = s.pending[nl+1:]
		if ev, ok := lexLine(line); ok {
			s.queue = append(s.queue, ev)
		}
	}
}

// lexLine decodes one complete line into a record. Blank lines, comments,
// unknown fields, and invalid retry values produce no record.
func lexLine(line string) (rawEvent, bool) {
	if line == "" {
		return rawEvent{}, false
	}
	if strings.HasPrefix(line, ":") {
		// comment
		return rawEvent{}, false
	}

	field, value, found := strings.Cut(line, ":")
	if !found {
		// Field-only line; value stays empty.
		field = line
	}
	value = strings.TrimLeft(value, " ")

	switch field {
	case fieldData:
		return rawEvent{
			Field:  fieldData,
			Value:  value,
			IsJSON: json.Valid([]byte(value)),
		}, true
	case fieldEvent, fieldID:
		return rawEvent{Field: field, Value: value}, true
	case fieldRetry:
		ms, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			// Invalid retry intervals are dropped silently.
			return rawEvent{}, false
		}
		return rawEvent{Field: fieldRetry, Value: value, Retry: ms}, true
	default:
		return rawEvent{}, false
	}
}

// dataRecord is the data-only view of the stream: the raw payload text plus
// whether it is JSON after re-attempting a parse on records the lexer
// flagged as non-JSON.
type dataRecord struct {
	Raw    string
	IsJSON bool
}

// NextData pulls the next data record, skipping event/id/retry records.
// Values the lexer flagged as non-JSON get one more parse attempt; a value
// that still fails is handed on as raw text for the decoder to recover.
func (s *eventScanner) NextData() (dataRecord, bool) {
	for {
		ev, ok := s.Next()
		if !ok {
			return dataRecord{}, false
		}
		if ev.Field != fieldData {
			continue
		}
		isJSON := ev.IsJSON
		if !isJSON {
			isJSON = json.Valid([]byte(ev.Value))
		}
		return dataRecord{Raw: ev.Value, IsJSON: isJSON}, true
	}
}
