package hostfuncs

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DefaultMaxRequestSize limits the encoded arguments of one capability call (1MB).
const DefaultMaxRequestSize = 1 * 1024 * 1024

// limitedBuffer keeps at most limit bytes and remembers whether anything
// past the limit was written. It never fails a write, so an encoder
// streaming into it runs to completion and the caller checks over.
type limitedBuffer struct {
	buf   bytes.Buffer
	limit int
	over  bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	room := b.limit - b.buf.Len()
	if len(p) > room {
		b.over = true
		if room > 0 {
			b.buf.Write(p[:room])
		}
		return len(p), nil
	}
	return b.buf.Write(p)
}

// EncodeArgs encodes positional capability arguments as a JSON array,
// failing once the encoding would exceed limit bytes.
func EncodeArgs(args []any, limit int) ([]byte, error) {
	if args == nil {
		args = []any{}
	}
	// The encoder's trailing newline does not count against the limit.
	buf := &limitedBuffer{limit: limit + 1}
	if err := json.NewEncoder(buf).Encode(args); err != nil {
		return nil, fmt.Errorf("encode arguments: %w", err)
	}
	if buf.over {
		return nil, fmt.Errorf("arguments exceed %d bytes", limit)
	}
	return bytes.TrimRight(buf.buf.Bytes(), "\n"), nil
}
