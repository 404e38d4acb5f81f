package llm

import "bytes"

// sseEventSplitter incrementally splits a byte stream into SSE events.
// Events are delimited by a blank line (LF or CRLF); a trailing partial
// event is returned once when flushed.
type sseEventSplitter struct {
	buffer []byte
}

func (p *sseEventSplitter) feed(chunk []byte) {
	p.buffer = append(p.buffer, chunk...)
}

// next returns the next complete event, or ok=false when none is buffered.
// With flush=true any trailing partial event is drained.
func (p *sseEventSplitter) next(flush bool) ([]byte, bool) {
	event, rest, ok := nextSSEEvent(p.buffer, flush)
	if !ok {
		return nil, false
	}
	p.buffer = rest
	return event, true
}

func nextSSEEvent(buf []byte, flush bool) ([]byte, []byte, bool) {
	if idx := bytes.Index(buf, []byte("\r\n\r\n")); idx >= 0 {
		return buf[:idx], buf[idx+4:], true
	}
	if idx := bytes.Index(buf, []byte("\n\n")); idx >= 0 {
		return buf[:idx], buf[idx+2:], true
	}
	if flush {
		trimmed := bytes.TrimSpace(buf)
		if len(trimmed) > 0 {
			return trimmed, nil, true
		}
	}
	return nil, nil, false
}

// eventData extracts and joins the data lines of one SSE event, skipping
// the [DONE] sentinel.
func eventData(event []byte) []byte {
	lines := bytes.Split(event, []byte("\n"))
	dataLines := make([][]byte, 0, 2)

	for _, line := range lines {
		line = bytes.TrimSpace(line)
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		payload := bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))
		if len(payload) == 0 || bytes.Equal(payload, []byte("[DONE]")) {
			continue
		}
		dataLines = append(dataLines, payload)
	}

	if len(dataLines) == 0 {
		return nil
	}
	return bytes.Join(dataLines, []byte("\n"))
}
