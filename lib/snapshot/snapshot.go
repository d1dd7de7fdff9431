// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"filippo.io/age"
	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/chainfs/lib/blockstore"
	"github.com/bureau-foundation/chainfs/lib/chainfs"
	"github.com/bureau-foundation/chainfs/lib/clock"
	"github.com/bureau-foundation/chainfs/lib/codec"
	"github.com/bureau-foundation/chainfs/lib/manifest"
)

// FormatVersion is written into every header.
const FormatVersion = 1

// magic opens every snapshot stream.
var magic = [8]byte{'C', 'H', 'F', 'S', 'S', 'N', 'A', 'P'}

// maxHeaderLength bounds the header read from untrusted input.
const maxHeaderLength = 1 << 16

var imageDomainKey = [32]byte{
	'c', 'h', 'a', 'i', 'n', 'f', 's', '.', 's', 'n', 'a', 'p', 's', 'h', 'o', 't',
	'.', 'i', 'm', 'a', 'g', 'e',
}

// ErrCorrupt is returned when a snapshot's framing, length, or
// digest does not check out.
var ErrCorrupt = errors.New("snapshot is corrupt")

// Header describes a snapshot. It is stored unencrypted.
type Header struct {
	Version     int             `json:"version"`
	Created     time.Time       `json:"created"`
	Compression Compression     `json:"compression"`
	Encrypted   bool            `json:"encrypted"`
	BlockSize   int             `json:"block_size"`
	TotalBlocks int             `json:"total_blocks"`
	FreeBlocks  int             `json:"free_blocks"`
	Length      int64           `json:"length"`
	Digest      manifest.Digest `json:"digest"`
}

// Option configures Save and Open.
type Option func(*options)

type options struct {
	compression Compression
	recipients  []age.Recipient
	identities  []age.Identity
	clock       clock.Clock
	logger      *slog.Logger
}

// WithCompression selects the codec for Save. Default: zstd.
func WithCompression(compression Compression) Option {
	return func(o *options) { o.compression = compression }
}

// WithRecipients makes Save encrypt to every recipient.
func WithRecipients(recipients ...age.Recipient) Option {
	return func(o *options) { o.recipients = append(o.recipients, recipients...) }
}

// WithIdentities supplies the keys Open uses for encrypted snapshots.
func WithIdentities(identities ...age.Identity) Option {
	return func(o *options) { o.identities = append(o.identities, identities...) }
}

// WithClock sets the clock that stamps Header.Created.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func buildOptions(opts []Option) options {
	o := options{compression: CompressionZstd}
	for _, opt := range opts {
		opt(&o)
	}
	o.clock = clock.OrReal(o.clock)
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Save writes a snapshot of fsys to w. The allocation table is
// flushed first; fsys must not be modified while Save runs.
func Save(w io.Writer, fsys *chainfs.FS, opts ...Option) (*Header, error) {
	o := buildOptions(opts)
	if _, err := ParseCompression(string(o.compression)); err != nil {
		return nil, err
	}
	if err := fsys.Flush(); err != nil {
		return nil, err
	}

	info := fsys.Info()
	length := int64(info.BlockSize) * int64(info.TotalBlocks)
	device := fsys.Device()

	// First pass: the digest goes in the header, ahead of the data.
	hasher := newImageHasher()
	if _, err := io.Copy(hasher, io.NewSectionReader(device, 0, length)); err != nil {
		return nil, fmt.Errorf("hashing container: %w", err)
	}

	header := &Header{
		Version:     FormatVersion,
		Created:     o.clock.Now().UTC(),
		Compression: o.compression,
		Encrypted:   len(o.recipients) > 0,
		BlockSize:   info.BlockSize,
		TotalBlocks: info.TotalBlocks,
		FreeBlocks:  info.FreeBlocks,
		Length:      length,
	}
	copy(header.Digest[:], hasher.Sum(nil))

	if err := writeHeader(w, header); err != nil {
		return nil, err
	}

	var sink io.WriteCloser = nopWriteCloser{w}
	if header.Encrypted {
		encrypted, err := age.Encrypt(w, o.recipients...)
		if err != nil {
			return nil, fmt.Errorf("creating age encryptor: %w", err)
		}
		sink = encrypted
	}
	compressed, err := compressor(sink, o.compression)
	if err != nil {
		return nil, err
	}

	if _, err := io.Copy(compressed, io.NewSectionReader(device, 0, length)); err != nil {
		return nil, fmt.Errorf("writing snapshot: %w", err)
	}
	if err := compressed.Close(); err != nil {
		return nil, fmt.Errorf("finishing %s stream: %w", o.compression, err)
	}
	if err := sink.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}

	o.logger.Info("saved snapshot",
		"compression", header.Compression,
		"encrypted", header.Encrypted,
		"length", header.Length,
		"digest", header.Digest,
	)
	return header, nil
}

func writeHeader(w io.Writer, header *Header) error {
	encoded, err := codec.Marshal(header)
	if err != nil {
		return fmt.Errorf("encoding snapshot header: %w", err)
	}
	var prefix [12]byte
	copy(prefix[:8], magic[:])
	binary.BigEndian.PutUint32(prefix[8:], uint32(len(encoded)))
	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("writing snapshot header: %w", err)
	}
	if _, err := w.Write(encoded); err != nil {
		return fmt.Errorf("writing snapshot header: %w", err)
	}
	return nil
}

// ReadHeader reads and validates the header at the start of r,
// leaving r positioned at the container data.
func ReadHeader(r io.Reader) (*Header, error) {
	var prefix [12]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, fmt.Errorf("reading snapshot header: %w", err)
	}
	if !bytes.Equal(prefix[:8], magic[:]) {
		return nil, fmt.Errorf("not a chainfs snapshot: %w", ErrCorrupt)
	}
	length := binary.BigEndian.Uint32(prefix[8:])
	if length > maxHeaderLength {
		return nil, fmt.Errorf("header length %d exceeds %d: %w", length, maxHeaderLength, ErrCorrupt)
	}
	encoded := make([]byte, length)
	if _, err := io.ReadFull(r, encoded); err != nil {
		return nil, fmt.Errorf("reading snapshot header: %w", err)
	}

	var header Header
	if err := codec.Unmarshal(encoded, &header); err != nil {
		return nil, fmt.Errorf("decoding snapshot header: %w: %w", ErrCorrupt, err)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", header.Version, FormatVersion)
	}
	if _, err := ParseCompression(string(header.Compression)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if err := chainfs.ValidateGeometry(header.BlockSize, header.TotalBlocks); err != nil {
		return nil, fmt.Errorf("snapshot geometry: %w: %w", ErrCorrupt, err)
	}
	if header.Length != int64(header.BlockSize)*int64(header.TotalBlocks) {
		return nil, fmt.Errorf("snapshot length %d does not match %d blocks of %d bytes: %w",
			header.Length, header.TotalBlocks, header.BlockSize, ErrCorrupt)
	}
	return &header, nil
}

// Reader streams the container out of a snapshot.
type Reader struct {
	Header *Header

	data    io.Reader
	release func()
	logger  *slog.Logger
}

// Open reads the header from r and prepares the data stream.
// Encrypted snapshots need [WithIdentities].
func Open(r io.Reader, opts ...Option) (*Reader, error) {
	o := buildOptions(opts)
	header, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	body := r
	if header.Encrypted {
		if len(o.identities) == 0 {
			return nil, fmt.Errorf("snapshot is encrypted and no identity was given")
		}
		body, err = age.Decrypt(r, o.identities...)
		if err != nil {
			return nil, fmt.Errorf("decrypting snapshot: %w", err)
		}
	}
	data, release, err := decompressor(body, header.Compression)
	if err != nil {
		return nil, err
	}
	return &Reader{Header: header, data: data, release: release, logger: o.logger}, nil
}

// Close releases decompressor resources.
func (r *Reader) Close() error {
	r.release()
	return nil
}

// Restore writes the container onto device, checks its length and
// digest, and mounts it. On success the returned FS owns device.
// On failure device is left open and may hold partial data.
func (r *Reader) Restore(device blockstore.Device, opts ...chainfs.Option) (*chainfs.FS, error) {
	if device.Size() < r.Header.Length {
		return nil, fmt.Errorf("device holds %d bytes, snapshot needs %d", device.Size(), r.Header.Length)
	}

	hasher := newImageHasher()
	sink := io.MultiWriter(io.NewOffsetWriter(device, 0), hasher)
	written, err := io.CopyN(sink, r.data, r.Header.Length)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("snapshot holds %d bytes, header says %d: %w", written, r.Header.Length, ErrCorrupt)
	}
	if err != nil {
		return nil, fmt.Errorf("restoring snapshot: %w", err)
	}
	// Reading past the end proves the stream has no trailing data and
	// drives age and the codecs to their final checks. The extra byte
	// never reaches the device.
	var extra [1]byte
	if n, err := io.ReadFull(r.data, extra[:]); n != 0 {
		return nil, fmt.Errorf("snapshot has data past the %d bytes its header records: %w", r.Header.Length, ErrCorrupt)
	} else if !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading past the container: %w: %w", ErrCorrupt, err)
	}

	var digest manifest.Digest
	copy(digest[:], hasher.Sum(nil))
	if digest != r.Header.Digest {
		return nil, fmt.Errorf("container digest %s, header says %s: %w", digest, r.Header.Digest, ErrCorrupt)
	}
	if err := device.Sync(); err != nil {
		return nil, fmt.Errorf("syncing restored container: %w", err)
	}

	fsys, err := chainfs.Mount(device, opts...)
	if err != nil {
		return nil, err
	}
	if info := fsys.Info(); info.BlockSize != r.Header.BlockSize || info.TotalBlocks != r.Header.TotalBlocks {
		fsys.Close()
		return nil, fmt.Errorf("restored superblock says %d blocks of %d bytes, header says %d of %d: %w",
			info.TotalBlocks, info.BlockSize, r.Header.TotalBlocks, r.Header.BlockSize, ErrCorrupt)
	}

	r.logger.Info("restored snapshot",
		"length", r.Header.Length,
		"digest", r.Header.Digest,
	)
	return fsys, nil
}

// RestoreFile restores the snapshot in r into a new container file at
// path and returns it mounted.
func RestoreFile(r io.Reader, path string, opts []Option, fsOpts ...chainfs.Option) (*chainfs.FS, *Header, error) {
	reader, err := Open(r, opts...)
	if err != nil {
		return nil, nil, err
	}
	defer reader.Close()

	device, err := blockstore.CreateFileDevice(path, reader.Header.Length)
	if err != nil {
		return nil, nil, err
	}
	fsys, err := reader.Restore(device, fsOpts...)
	if err != nil {
		device.Close()
		return nil, nil, err
	}
	return fsys, reader.Header, nil
}

func newImageHasher() *blake3.Hasher {
	hasher, err := blake3.NewKeyed(imageDomainKey[:])
	if err != nil {
		panic("snapshot: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}
