// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package descriptor

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"
	"sigs.k8s.io/yaml"
)

// patchMagic prefixes the binary form of a Patch.
var patchMagic = []byte("ordp\x01")

var (
	patchEncoder *zstd.Encoder
	patchDecoder *zstd.Decoder
)

func init() {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(err)
	}
	patchEncoder = enc
	dec, err := zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}
	patchDecoder = dec
}

// patchBody is the serialized form of a Patch.
// It is a distinct type so that the encoders do
// not call back into Patch's own methods.
type patchBody struct {
	Stages []PatchStage `json:"stages"`
}

// MarshalBinary implements encoding.BinaryMarshaler.
//
// The encoding is a short magic prefix, the zstd-compressed
// JSON form of the stages, and a BLAKE2b-256 checksum
// of everything that precedes it.
func (p *Patch) MarshalBinary() ([]byte, error) {
	if p.consumed {
		return nil, ErrPatchConsumed
	}
	body, err := json.Marshal(patchBody{Stages: p.Stages})
	if err != nil {
		return nil, fmt.Errorf("Patch.MarshalBinary: %w", err)
	}
	out := append([]byte{}, patchMagic...)
	out = patchEncoder.EncodeAll(body, out)
	sum := blake2b.Sum256(out)
	return append(out, sum[:]...), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
// The decoded Patch has not been consumed.
func (p *Patch) UnmarshalBinary(buf []byte) error {
	if len(buf) < len(patchMagic)+blake2b.Size256 || !bytes.HasPrefix(buf, patchMagic) {
		return fmt.Errorf("Patch.UnmarshalBinary: invalid header")
	}
	split := len(buf) - blake2b.Size256
	sum := blake2b.Sum256(buf[:split])
	if !bytes.Equal(sum[:], buf[split:]) {
		return ErrBadChecksum
	}
	body, err := patchDecoder.DecodeAll(buf[len(patchMagic):split], nil)
	if err != nil {
		return fmt.Errorf("Patch.UnmarshalBinary: %w", err)
	}
	var pb patchBody
	if err := json.Unmarshal(body, &pb); err != nil {
		return fmt.Errorf("Patch.UnmarshalBinary: %w", err)
	}
	p.Stages = pb.Stages
	p.consumed = false
	return nil
}

// Text renders p as YAML. Like MarshalBinary,
// it fails once p has been consumed.
func (p *Patch) Text() ([]byte, error) {
	if p.consumed {
		return nil, ErrPatchConsumed
	}
	buf, err := yaml.Marshal(patchBody{Stages: p.Stages})
	if err != nil {
		return nil, fmt.Errorf("Patch.Text: %w", err)
	}
	return buf, nil
}

// ParsePatch parses the YAML (or JSON)
// form of a Patch produced by Text.
func ParsePatch(buf []byte) (*Patch, error) {
	var pb patchBody
	if err := yaml.UnmarshalStrict(buf, &pb); err != nil {
		return nil, fmt.Errorf("descriptor.ParsePatch: %w", err)
	}
	return &Patch{Stages: pb.Stages}, nil
}
