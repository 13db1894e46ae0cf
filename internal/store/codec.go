// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

package store

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"

	"github.com/goccy/go-json"
)

// Codec encodes and decodes stored values. Implementations must be
// stateless and safe for concurrent use; no codec may carry per-call
// mutable state.
type Codec[V any] interface {
	Encode(v V) ([]byte, error)
	Decode(data []byte) (V, error)
	Name() string
}

// JSONCodec serializes values as JSON. Suitable for structured records such
// as observation sets; truncated or garbled bytes fail to decode and are
// reported as corruption by the store.
type JSONCodec[V any] struct{}

// Encode marshals v to JSON.
func (JSONCodec[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }

// Decode unmarshals JSON data into a value of type V.
func (JSONCodec[V]) Decode(data []byte) (V, error) {
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode json: %w", err)
	}
	return v, nil
}

// Name returns the stable codec name.
func (JSONCodec[V]) Name() string { return "json" }

// Vector codec wire format, all big-endian:
//
//	[1]  version
//	[4]  element count
//	[8n] float64 bits
//	[4]  CRC-32 (IEEE) of all preceding bytes
const (
	vectorCodecVersion = 1
	vectorHeaderLen    = 1 + 4
	vectorTrailerLen   = 4
)

// VectorCodec serializes weight vectors in a compact self-describing binary
// form. The length prefix and checksum make truncation and bit rot
// detectable instead of silently yielding a wrong vector.
type VectorCodec struct{}

// Encode serializes the vector.
func (VectorCodec) Encode(v []float64) ([]byte, error) {
	buf := make([]byte, vectorHeaderLen+8*len(v)+vectorTrailerLen)
	buf[0] = vectorCodecVersion
	binary.BigEndian.PutUint32(buf[1:], uint32(len(v)))

	off := vectorHeaderLen
	for _, f := range v {
		binary.BigEndian.PutUint64(buf[off:], math.Float64bits(f))
		off += 8
	}

	sum := crc32.ChecksumIEEE(buf[:off])
	binary.BigEndian.PutUint32(buf[off:], sum)
	return buf, nil
}

// Decode deserializes a vector, validating version, length, and checksum.
func (VectorCodec) Decode(data []byte) ([]float64, error) {
	if len(data) < vectorHeaderLen+vectorTrailerLen {
		return nil, fmt.Errorf("vector record too short: %d bytes", len(data))
	}
	if data[0] != vectorCodecVersion {
		return nil, fmt.Errorf("unknown vector record version %d", data[0])
	}

	count := binary.BigEndian.Uint32(data[1:])
	want := vectorHeaderLen + 8*int(count) + vectorTrailerLen
	if len(data) != want {
		return nil, fmt.Errorf("vector record length %d does not match declared count %d", len(data), count)
	}

	body := len(data) - vectorTrailerLen
	if crc32.ChecksumIEEE(data[:body]) != binary.BigEndian.Uint32(data[body:]) {
		return nil, fmt.Errorf("vector record checksum mismatch")
	}

	v := make([]float64, count)
	off := vectorHeaderLen
	for i := range v {
		v[i] = math.Float64frombits(binary.BigEndian.Uint64(data[off:]))
		off += 8
	}
	return v, nil
}

// Name returns the stable codec name.
func (VectorCodec) Name() string { return "vector-v1" }
