package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/EchoTools/uetex/pkg/cursor"
)

const (
	// ChunkTag starts every compressed chunk.
	ChunkTag uint32 = 0x9E2A83C1

	// DefaultBlockSize is used when a chunk header stores a zero block size.
	DefaultBlockSize = 128 * 1024

	// MaxChunkSize bounds the decompressed size a chunk may claim.
	MaxChunkSize = 1 << 30

	chunkHeaderSize = 24 // tag + block size + summary
	blockEntrySize  = 16
)

// ErrCorruptChunk is returned when a compressed chunk's framing or
// payload disagrees with its own summary.
var ErrCorruptChunk = errors.New("corrupt compressed chunk")

type chunkBlock struct {
	compressed   uint64
	uncompressed uint64
}

// ReadChunk decompresses a zlib chunk. Structural reads past the end of
// data fail with cursor.ErrTruncatedBuffer; inconsistent sizes and bad
// zlib streams fail with ErrCorruptChunk.
func ReadChunk(data []byte) ([]byte, error) {
	c := cursor.New(data)

	tag, err := c.U32()
	if err != nil {
		return nil, fmt.Errorf("chunk tag: %w", err)
	}
	if tag != ChunkTag {
		return nil, fmt.Errorf("tag 0x%08X: %w", tag, ErrCorruptChunk)
	}
	blockSize, err := c.U32()
	if err != nil {
		return nil, fmt.Errorf("block size: %w", err)
	}
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	var summary chunkBlock
	if summary.compressed, err = c.U64(); err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	if summary.uncompressed, err = c.U64(); err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	if summary.uncompressed > MaxChunkSize {
		return nil, fmt.Errorf("claims %d bytes: %w", summary.uncompressed, ErrCorruptChunk)
	}

	n := (summary.uncompressed + uint64(blockSize) - 1) / uint64(blockSize)
	if n*blockEntrySize > uint64(c.Remaining()) {
		return nil, fmt.Errorf("%d block entries in %d bytes: %w", n, c.Remaining(), cursor.ErrTruncatedBuffer)
	}

	blocks := make([]chunkBlock, n)
	var total chunkBlock
	for i := range blocks {
		b := &blocks[i]
		if b.compressed, err = c.U64(); err != nil {
			return nil, err
		}
		if b.uncompressed, err = c.U64(); err != nil {
			return nil, err
		}
		if b.uncompressed > uint64(blockSize) {
			return nil, fmt.Errorf("block %d holds %d bytes, block size %d: %w", i, b.uncompressed, blockSize, ErrCorruptChunk)
		}
		total.compressed += b.compressed
		total.uncompressed += b.uncompressed
	}
	if total != summary {
		return nil, fmt.Errorf("blocks total %d/%d, summary %d/%d: %w",
			total.compressed, total.uncompressed, summary.compressed, summary.uncompressed, ErrCorruptChunk)
	}

	out := make([]byte, 0, summary.uncompressed)
	for i, b := range blocks {
		payload, err := c.BytesU64(b.compressed)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		if out, err = inflateBlock(out, payload, b.uncompressed); err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
	}
	return out, nil
}

// inflateBlock appends exactly want decompressed bytes of payload to dst.
func inflateBlock(dst, payload []byte, want uint64) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return dst, fmt.Errorf("%v: %w", err, ErrCorruptChunk)
	}
	defer zr.Close()

	start := len(dst)
	buf := bytes.NewBuffer(dst)
	n, err := io.Copy(buf, io.LimitReader(zr, int64(want)+1))
	if err != nil {
		return dst[:start], fmt.Errorf("%v: %w", err, ErrCorruptChunk)
	}
	if uint64(n) != want {
		return dst[:start], fmt.Errorf("inflated %d bytes, want %d: %w", n, want, ErrCorruptChunk)
	}
	return buf.Bytes(), nil
}

// WriteChunk compresses data into the chunk format read by ReadChunk,
// splitting it into blocks of blockSize bytes (DefaultBlockSize if 0).
func WriteChunk(data []byte, blockSize int) ([]byte, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	if len(data) > MaxChunkSize {
		return nil, fmt.Errorf("%d bytes exceeds chunk limit: %w", len(data), ErrCorruptChunk)
	}

	var (
		blocks  []chunkBlock
		payload bytes.Buffer
		total   chunkBlock
	)
	for off := 0; off < len(data); off += blockSize {
		end := min(off+blockSize, len(data))
		before := payload.Len()

		zw, err := zlib.NewWriterLevel(&payload, zlib.BestCompression)
		if err != nil {
			return nil, err
		}
		if _, err := zw.Write(data[off:end]); err != nil {
			return nil, fmt.Errorf("compress block: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("compress block: %w", err)
		}

		b := chunkBlock{compressed: uint64(payload.Len() - before), uncompressed: uint64(end - off)}
		blocks = append(blocks, b)
		total.compressed += b.compressed
		total.uncompressed += b.uncompressed
	}

	out := make([]byte, 0, chunkHeaderSize+len(blocks)*blockEntrySize+payload.Len())
	out = binary.LittleEndian.AppendUint32(out, ChunkTag)
	out = binary.LittleEndian.AppendUint32(out, uint32(blockSize))
	out = binary.LittleEndian.AppendUint64(out, total.compressed)
	out = binary.LittleEndian.AppendUint64(out, total.uncompressed)
	for _, b := range blocks {
		out = binary.LittleEndian.AppendUint64(out, b.compressed)
		out = binary.LittleEndian.AppendUint64(out, b.uncompressed)
	}
	return append(out, payload.Bytes()...), nil
}
