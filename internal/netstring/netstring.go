// Package netstring frames arbitrary byte strings per the classical
// netstring specification (http://cr.yp.to/proto/netstrings.txt) so that
// multiple messages can share one datagram or stream without an
// application-level delimiter: "<ascii-digits>:<payload>,".
package netstring

import (
	"bytes"
	"fmt"
	"strconv"
)

// sentinel is the terminating byte of a netstring, ',' (0x2C).
const sentinel = ','

// FramingError reports that the sentinel byte was not found at the
// expected offset, or that a colon was not preceded by a parsable length.
// The decoder resynchronises by discarding buffered bytes up to the fault
// and resuming its scan.
type FramingError struct {
	Offset int
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("netstring: framing fault at offset %d", e.Offset)
}

// Encode converts text to its netstring representation.
func Encode(text string) []byte {
	payload := []byte(text)
	return []byte(fmt.Sprintf("%d:%s,", len(payload), payload))
}

// Decoder is a stateful, restartable netstring consumer. It ingests
// arbitrary byte chunks via Feed and reports at most one complete message
// per call. It tolerates leading garbage (bytes preceding a length prefix
// are discarded as they're scanned) but returns a *FramingError when the
// sentinel byte is missing at the expected offset; after a fault it
// discards the buffered bytes up to that point and resumes scanning.
//
// The zero value is ready to use — there is no separate priming step,
// unlike the Python generator this is ported from (which must be primed
// with a `None` send before its first real chunk).
type Decoder struct {
	buf  bytes.Buffer
	span int
	have bool // true once span has been parsed from a length prefix
}

// NewDecoder returns a Decoder in its idle state.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed ingests data and reports whether it completed a message. On a
// framing fault it returns (false, err) having already resynchronised;
// the caller may continue feeding further chunks.
func (d *Decoder) Feed(data []byte) (msg string, ok bool, err error) {
	d.buf.Write(data)

	if !d.have {
		raw := d.buf.Bytes()
		colon := bytes.IndexByte(raw, ':')
		if colon == -1 {
			return "", false, nil
		}
		// Work backwards from the colon over the decimal length field,
		// discarding any leading noise before it.
		index := colon - 1
		for index >= 0 && raw[index] >= '0' && raw[index] <= '9' {
			index--
		}
		span, perr := strconv.Atoi(string(raw[index+1 : colon]))
		if perr != nil {
			// Resynchronise: drop everything up to and including the colon.
			rest := append([]byte(nil), raw[colon+1:]...)
			d.buf.Reset()
			d.buf.Write(rest)
			return "", false, &FramingError{Offset: colon}
		}
		d.span = span
		d.have = true
		remaining := append([]byte(nil), raw[colon+1:]...)
		d.buf.Reset()
		d.buf.Write(remaining)
	}

	if d.buf.Len() < d.span+1 {
		return "", false, nil
	}

	raw := d.buf.Bytes()
	d.have = false
	if raw[d.span] != sentinel {
		fault := &FramingError{Offset: d.span}
		// Resynchronise: drop everything up to and including the fault.
		rest := append([]byte(nil), raw[d.span+1:]...)
		d.buf.Reset()
		d.buf.Write(rest)
		d.span = 0
		return "", false, fault
	}

	msg = string(raw[:d.span])
	rest := append([]byte(nil), raw[d.span+1:]...)
	d.buf.Reset()
	d.buf.Write(rest)
	d.span = 0
	return msg, true, nil
}
