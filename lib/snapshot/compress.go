// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression names the codec applied to the container bytes. The
// names are stored in snapshot headers.
type Compression string

const (
	CompressionNone Compression = "none"

	// CompressionLZ4 uses the LZ4 frame format. Fast, modest ratio.
	CompressionLZ4 Compression = "lz4"

	// CompressionZstd uses zstd at the default level. Containers are
	// mostly zero-filled free blocks, which zstd squeezes well.
	CompressionZstd Compression = "zstd"
)

// ParseCompression parses a compression name.
func ParseCompression(name string) (Compression, error) {
	switch compression := Compression(name); compression {
	case CompressionNone, CompressionLZ4, CompressionZstd:
		return compression, nil
	default:
		return "", fmt.Errorf("unknown compression %q (want none, lz4, or zstd)", name)
	}
}

// compressor wraps w; closing the result flushes the codec but does
// not close w.
func compressor(w io.Writer, compression Compression) (io.WriteCloser, error) {
	switch compression {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionLZ4:
		writer := lz4.NewWriter(w)
		if err := writer.Apply(lz4.ChecksumOption(true)); err != nil {
			return nil, fmt.Errorf("configuring lz4: %w", err)
		}
		return writer, nil
	case CompressionZstd:
		encoder, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		return encoder, nil
	default:
		return nil, fmt.Errorf("unsupported compression %q", compression)
	}
}

// decompressor wraps r. The returned closer releases codec resources.
func decompressor(r io.Reader, compression Compression) (io.Reader, func(), error) {
	switch compression {
	case CompressionNone:
		return r, func() {}, nil
	case CompressionLZ4:
		return lz4.NewReader(r), func() {}, nil
	case CompressionZstd:
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		return decoder, decoder.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported compression %q", compression)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
