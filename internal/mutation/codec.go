package mutation

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Format selects a wire encoding.
type Format uint8

const (
	FormatText Format = iota
	FormatJSON
	FormatMsgpack
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatJSON:
		return "json"
	case FormatMsgpack:
		return "msgpack"
	default:
		return "unknown"
	}
}

// Formats lists the supported wire formats.
func Formats() []Format { return []Format{FormatText, FormatJSON, FormatMsgpack} }

// ParseFormat converts a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "text", "":
		return FormatText, nil
	case "json", "ndjson":
		return FormatJSON, nil
	case "msgpack", "mp":
		return FormatMsgpack, nil
	default:
		return FormatText, fmt.Errorf("invalid script format: %q (expected: text|json|msgpack)", s)
	}
}

// Encoder writes batches to a stream.
type Encoder struct {
	w      io.Writer
	format Format
	mp     *msgpack.Encoder
	js     *json.Encoder
}

// NewEncoder creates an encoder for format.
func NewEncoder(w io.Writer, format Format) *Encoder {
	e := &Encoder{w: w, format: format}
	switch format {
	case FormatMsgpack:
		e.mp = msgpack.NewEncoder(w)
	case FormatJSON:
		e.js = json.NewEncoder(w)
	}
	return e
}

// Encode writes one batch.
func (e *Encoder) Encode(b Batch) error {
	switch e.format {
	case FormatMsgpack:
		return e.mp.Encode(&b)
	case FormatJSON:
		return e.js.Encode(&b)
	default:
		var sb strings.Builder
		fmt.Fprintf(&sb, "# cycle %d (%d edits)\n", b.Cycle, len(b.Edits))
		for _, m := range b.Edits {
			sb.WriteString(m.String())
			sb.WriteByte('\n')
		}
		_, err := io.WriteString(e.w, sb.String())
		return err
	}
}

// Decoder reads batches back. The text format is write-only.
type Decoder struct {
	mp *msgpack.Decoder
	js *json.Decoder
}

// NewDecoder creates a decoder for a msgpack or JSON stream.
func NewDecoder(r io.Reader, format Format) (*Decoder, error) {
	switch format {
	case FormatMsgpack:
		return &Decoder{mp: msgpack.NewDecoder(bufio.NewReader(r))}, nil
	case FormatJSON:
		return &Decoder{js: json.NewDecoder(r)}, nil
	default:
		return nil, fmt.Errorf("cannot decode %s scripts", format)
	}
}

// Decode reads the next batch. It returns io.EOF at the end of the stream.
func (d *Decoder) Decode() (Batch, error) {
	var b Batch
	var err error
	if d.mp != nil {
		err = d.mp.Decode(&b)
	} else {
		err = d.js.Decode(&b)
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Batch{}, io.EOF
		}
		return Batch{}, fmt.Errorf("decode script: %w", err)
	}
	return b, nil
}
