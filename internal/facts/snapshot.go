package facts

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

const (
	// snapshotVersion is the current snapshot format version.
	snapshotVersion = 1

	// checksumSize is the size of the blake3 checksum prefix.
	checksumSize = 32
)

// Export serializes the entire fact log into a compressed snapshot.
// Layout: blake3 checksum of the raw payload, then the zstd-compressed
// payload: u32 version, u32 count, then per fact u64 seq + u32 len + bytes.
// New observers bootstrap from a snapshot instead of replaying the full log
// over the feed.
func Export(l *Log) ([]byte, error) {
	fs, err := l.Read(1, 0)
	if err != nil {
		return nil, fmt.Errorf("read log:\n%w", err)
	}

	raw := buildPayload(fs)
	sum := blake3.Sum256(raw)

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd writer:\n%w", err)
	}
	defer enc.Close()

	out := make([]byte, 0, checksumSize+len(raw)/2)
	out = append(out, sum[:]...)
	out = enc.EncodeAll(raw, out)

	return out, nil
}

// Import parses a snapshot back into its facts, verifying the checksum.
func Import(data []byte) ([]Fact, error) {
	if len(data) < checksumSize {
		return nil, fmt.Errorf("snapshot too short: %d bytes", len(data))
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader:\n%w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(data[checksumSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot:\n%w", err)
	}

	sum := blake3.Sum256(raw)
	if string(sum[:]) != string(data[:checksumSize]) {
		return nil, fmt.Errorf("snapshot checksum mismatch")
	}

	return parsePayload(raw)
}

// buildPayload serializes facts into the uncompressed snapshot payload.
func buildPayload(fs []Fact) []byte {
	buf := make([]byte, 8, 8+len(fs)*64)
	binary.LittleEndian.PutUint32(buf[0:4], snapshotVersion)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(fs)))

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

// parsePayload deserializes the uncompressed snapshot payload.
func parsePayload(raw []byte) ([]Fact, error) {
	if len(raw) < 8 {
		return nil, fmt.Errorf("payload too short: %d bytes", len(raw))
	}

	version := binary.LittleEndian.Uint32(raw[0:4])
	if version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", version)
	}

	count := binary.LittleEndian.Uint32(raw[4:8])
	facts := make([]Fact, 0, count)
	offset := 8

	for i := uint32(0); i < count; i++ {
		if len(raw) < offset+12 {
			return nil, fmt.Errorf("truncated fact header at entry %d", i)
		}

		seq := binary.LittleEndian.Uint64(raw[offset : offset+8])
		size := int(binary.LittleEndian.Uint32(raw[offset+8 : offset+12]))
		offset += 12

		if len(raw) < offset+size {
			return nil, fmt.Errorf("truncated fact body at entry %d", i)
		}

		f, err := Decode(raw[offset : offset+size])
		if err != nil {
			return nil, fmt.Errorf("entry %d:\n%w", i, err)
		}

		f.Seq = seq
		facts = append(facts, f)
		offset += size
	}

	return facts, nil
}
