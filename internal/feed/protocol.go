// Package feed serves the fact log to external observers over QUIC.
// Observers poll for fact batches from an offset, or download a compressed
// snapshot to bootstrap, then fold everything into a facts.View.
package feed

import (
	"encoding/binary"
	"fmt"
	"io"

	"CardSwap/internal/facts"
)

const (
	// maxMessageSize is the maximum allowed message size (16 MB).
	maxMessageSize = 16 << 20

	// lengthPrefixSize is the size of the length prefix in bytes.
	lengthPrefixSize = 4

	// alpnProtocol is the ALPN protocol identifier.
	alpnProtocol = "cardswap/1"
)

// Message kinds. Requests and responses share one tag space.
const (
	msgFactsRequest byte = iota + 1
	msgFactsResponse
	msgSnapshotRequest
	msgSnapshotResponse
	msgError
)

// writeMessage writes a length-prefixed message to the writer.
// Format: [4 bytes big-endian length] [payload]
func writeMessage(w io.Writer, data []byte) error {
	if len(data) > maxMessageSize {
		return fmt.Errorf("message too large: %d > %d", len(data), maxMessageSize)
	}

	var lengthBuf [lengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(data)))

	if _, err := w.Write(lengthBuf[:]); err != nil {
		return fmt.Errorf("write length: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}

	return nil
}

// readMessage reads a length-prefixed message from the reader.
func readMessage(r io.Reader) ([]byte, error) {
	var lengthBuf [lengthPrefixSize]byte

	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}

	length := binary.BigEndian.Uint32(lengthBuf[:])

	if length > maxMessageSize {
		return nil, fmt.Errorf("message too large: %d > %d", length, maxMessageSize)
	}

	data := make([]byte, length)

	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	return data, nil
}

// encodeFactsRequest builds a facts request: from sequence and batch limit.
func encodeFactsRequest(from uint64, limit uint32) []byte {
	buf := make([]byte, 1+8+4)
	buf[0] = msgFactsRequest
	binary.LittleEndian.PutUint64(buf[1:9], from)
	binary.LittleEndian.PutUint32(buf[9:13], limit)
	return buf
}

// decodeFactsRequest parses a facts request payload (after the tag byte).
func decodeFactsRequest(body []byte) (from uint64, limit uint32, err error) {
	if len(body) != 12 {
		return 0, 0, fmt.Errorf("facts request: bad length %d", len(body))
	}
	return binary.LittleEndian.Uint64(body[0:8]), binary.LittleEndian.Uint32(body[8:12]), nil
}

// encodeFactsResponse builds a facts response from a batch.
// Layout: tag, u32 count, then per fact u64 seq + u32 len + bytes.
func encodeFactsResponse(fs []facts.Fact) []byte {
	buf := make([]byte, 5, 5+len(fs)*64)
	buf[0] = msgFactsResponse
	binary.LittleEndian.PutUint32(buf[1:5], uint32(len(fs)))

	for _, f := range fs {
		var head [12]byte
		data := f.Encode()
		binary.LittleEndian.PutUint64(head[0:8], f.Seq)
		binary.LittleEndian.PutUint32(head[8:12], uint32(len(data)))
		buf = append(buf, head[:]...)
		buf = append(buf, data...)
	}

	return buf
}

// decodeFactsResponse parses a facts response payload (after the tag byte).
func decodeFactsResponse(body []byte) ([]facts.Fact, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("facts response too short: %d bytes", len(body))
	}

	count := binary.LittleEndian.Uint32(body[0:4])
	fs := make([]facts.Fact, 0, count)
	offset := 4

	for i := uint32(0); i < count; i++ {
		if len(body) < offset+12 {
			return nil, fmt.Errorf("truncated fact header at entry %d", i)
		}

		seq := binary.LittleEndian.Uint64(body[offset : offset+8])
		size := int(binary.LittleEndian.Uint32(body[offset+8 : offset+12]))
		offset += 12

		if len(body) < offset+size {
			return nil, fmt.Errorf("truncated fact body at entry %d", i)
		}

		f, err := facts.Decode(body[offset : offset+size])
		if err != nil {
			return nil, fmt.Errorf("entry %d:\n%w", i, err)
		}

		f.Seq = seq
		fs = append(fs, f)
		offset += size
	}

	return fs, nil
}

// encodeError builds an error response.
func encodeError(msg string) []byte {
	buf := make([]byte, 0, 1+len(msg))
	buf = append(buf, msgError)
	return append(buf, msg...)
}

// parseResponse splits a response into its tag and body, surfacing remote
// errors as Go errors.
func parseResponse(data []byte, want byte) ([]byte, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("empty response")
	}

	switch data[0] {
	case want:
		return data[1:], nil
	case msgError:
		return nil, fmt.Errorf("feed error: %s", data[1:])
	default:
		return nil, fmt.Errorf("unexpected response kind %d", data[0])
	}
}
