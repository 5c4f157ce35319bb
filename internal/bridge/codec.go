package bridge

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// maxMessageSize bounds a single JSON line. Flatten requests carry the whole
// tree, so the limit is generous.
const maxMessageSize = 512 << 20

// ErrMessageTooLarge is returned by a LineReader for lines over the limit.
var ErrMessageTooLarge = errors.New("message exceeds size limit")

// NewRequest encodes payload into a request.
func NewRequest(typ MessageType, gen uint64, payload any) (Request, error) {
	req := Request{Type: typ, Gen: gen}
	if payload == nil {
		return req, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Request{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	req.Data = data
	return req, nil
}

// Marshal encodes a message as a single line without the trailing newline.
func Marshal(msg any) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return b, nil
}

// DecodeRequest parses one request line.
func DecodeRequest(line []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

// DecodeResponse parses one response line.
func DecodeResponse(line []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

// LineReader splits a stream into JSON lines. Blank lines are skipped.
type LineReader struct {
	r *bufio.Reader
}

// NewLineReader wraps r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReaderSize(r, 64<<10)}
}

// Next returns the next non-blank line without its terminator. It returns
// io.EOF after the last line; a final line without a newline is still
// returned.
func (lr *LineReader) Next() ([]byte, error) {
	for {
		line, err := lr.readLine()
		if len(line) > 0 {
			return line, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (lr *LineReader) readLine() ([]byte, error) {
	var buf []byte
	for {
		chunk, err := lr.r.ReadSlice('\n')
		if len(buf)+len(chunk) > maxMessageSize {
			return nil, ErrMessageTooLarge
		}
		buf = append(buf, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return bytes.TrimSpace(buf), err
	}
}

// LineWriter writes messages as newline-terminated JSON.
type LineWriter struct {
	w *bufio.Writer
}

// NewLineWriter wraps w.
func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{w: bufio.NewWriter(w)}
}

// WriteLine writes one encoded message and flushes it.
func (lw *LineWriter) WriteLine(line []byte) error {
	if _, err := lw.w.Write(line); err != nil {
		return err
	}
	if err := lw.w.WriteByte('\n'); err != nil {
		return err
	}
	return lw.w.Flush()
}
