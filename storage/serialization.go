// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/agentdex/core"
)

// Record layouts are hand-rolled MUS codecs. Every record starts with a
// version tag so the layout can evolve without flag-day migrations.
const (
	snapshotVersion = 1
	cursorVersion   = 1
)

// MarshalSnapshot serializes a Snapshot to bytes.
func MarshalSnapshot(snapshot *Snapshot) []byte {
	buf := make([]byte, SnapshotMUS.Size(*snapshot))
	SnapshotMUS.Marshal(*snapshot, buf)
	return buf
}

// UnmarshalSnapshot deserializes a Snapshot from bytes.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	snapshot, _, err := SnapshotMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// MarshalCursor serializes a Cursor to bytes.
func MarshalCursor(cursor *Cursor) []byte {
	buf := make([]byte, CursorMUS.Size(*cursor))
	CursorMUS.Marshal(*cursor, buf)
	return buf
}

// UnmarshalCursor deserializes a Cursor from bytes.
func UnmarshalCursor(data []byte) (*Cursor, error) {
	cursor, _, err := CursorMUS.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return &cursor, nil
}

// SnapshotMUS serializes Snapshot values in the MUS format. SemanticScore
// is query state and is not part of the stored record.
var SnapshotMUS = snapshotMUS{}

type snapshotMUS struct{}

func (snapshotMUS) Marshal(v Snapshot, bs []byte) (n int) {
	n = varint.Int.Marshal(snapshotVersion, bs)
	n += varint.Uint64.Marshal(uint64(v.Summary.ChainID), bs[n:])
	n += ord.String.Marshal(string(v.Summary.AgentID), bs[n:])
	n += ord.String.Marshal(v.Summary.Name, bs[n:])
	n += ord.String.Marshal(v.Summary.Description, bs[n:])
	n += ord.String.Marshal(v.Summary.Image, bs[n:])
	n += stringsMUS.Marshal(v.Summary.Owners, bs[n:])
	n += stringsMUS.Marshal(v.Summary.Operators, bs[n:])
	n += ord.String.Marshal(v.Summary.WalletAddress, bs[n:])
	n += ord.String.Marshal(v.Summary.MCPEndpoint, bs[n:])
	n += ord.String.Marshal(v.Summary.MCPVersion, bs[n:])
	n += ord.String.Marshal(v.Summary.A2AEndpoint, bs[n:])
	n += ord.String.Marshal(v.Summary.A2AVersion, bs[n:])
	n += ord.String.Marshal(v.Summary.WebEndpoint, bs[n:])
	n += ord.String.Marshal(v.Summary.EmailEndpoint, bs[n:])
	n += ord.String.Marshal(v.Summary.ENS, bs[n:])
	n += ord.String.Marshal(v.Summary.DID, bs[n:])
	n += stringsMUS.Marshal(v.Summary.SupportedTrusts, bs[n:])
	n += stringsMUS.Marshal(v.Summary.A2ASkills, bs[n:])
	n += stringsMUS.Marshal(v.Summary.MCPTools, bs[n:])
	n += stringsMUS.Marshal(v.Summary.MCPPrompts, bs[n:])
	n += stringsMUS.Marshal(v.Summary.MCPResources, bs[n:])
	n += stringsMUS.Marshal(v.Summary.OASFSkills, bs[n:])
	n += stringsMUS.Marshal(v.Summary.OASFDomains, bs[n:])
	n += ord.Bool.Marshal(v.Summary.Active, bs[n:])
	n += ord.Bool.Marshal(v.Summary.X402Support, bs[n:])
	n += ord.Bool.Marshal(v.Summary.HasOASF, bs[n:])
	n += ord.String.Marshal(v.Summary.AgentURI, bs[n:])
	n += ord.String.Marshal(v.Summary.AgentURIType, bs[n:])
	n += varint.Int64.Marshal(v.Summary.CreatedAt, bs[n:])
	n += varint.Int64.Marshal(v.Summary.UpdatedAt, bs[n:])
	n += varint.Int64.Marshal(v.Summary.LastActivity, bs[n:])
	n += varint.Int64.Marshal(v.Summary.FeedbackCount, bs[n:])
	n += optFloat64MUS.Marshal(v.Summary.AverageValue, bs[n:])
	n += ord.String.Marshal(v.ContentHash, bs[n:])
	n += varint.Int64.Marshal(v.FetchedAt.UnixMicro(), bs[n:])
	return n
}

func (snapshotMUS) Unmarshal(bs []byte) (v Snapshot, n int, err error) {
	r := musReader{bs: bs}
	if version := r.count(); r.err == nil && version != snapshotVersion {
		return v, r.n, fmt.Errorf("%w: unsupported snapshot version %d",
			ErrSerializationFailed, version)
	}
	v.Summary.ChainID = core.ChainID(r.u64())
	v.Summary.AgentID = core.AgentID(r.str())
	v.Summary.Name = r.str()
	v.Summary.Description = r.str()
	v.Summary.Image = r.str()
	v.Summary.Owners = r.strs()
	v.Summary.Operators = r.strs()
	v.Summary.WalletAddress = r.str()
	v.Summary.MCPEndpoint = r.str()
	v.Summary.MCPVersion = r.str()
	v.Summary.A2AEndpoint = r.str()
	v.Summary.A2AVersion = r.str()
	v.Summary.WebEndpoint = r.str()
	v.Summary.EmailEndpoint = r.str()
	v.Summary.ENS = r.str()
	v.Summary.DID = r.str()
	v.Summary.SupportedTrusts = r.strs()
	v.Summary.A2ASkills = r.strs()
	v.Summary.MCPTools = r.strs()
	v.Summary.MCPPrompts = r.strs()
	v.Summary.MCPResources = r.strs()
	v.Summary.OASFSkills = r.strs()
	v.Summary.OASFDomains = r.strs()
	v.Summary.Active = r.boolean()
	v.Summary.X402Support = r.boolean()
	v.Summary.HasOASF = r.boolean()
	v.Summary.AgentURI = r.str()
	v.Summary.AgentURIType = r.str()
	v.Summary.CreatedAt = r.i64()
	v.Summary.UpdatedAt = r.i64()
	v.Summary.LastActivity = r.i64()
	v.Summary.FeedbackCount = r.i64()
	v.Summary.AverageValue = r.optF64()
	v.ContentHash = r.str()
	v.FetchedAt = r.unixMicro()
	return v, r.n, r.err
}

func (snapshotMUS) Size(v Snapshot) (size int) {
	size = varint.Int.Size(snapshotVersion)
	size += varint.Uint64.Size(uint64(v.Summary.ChainID))
	size += ord.String.Size(string(v.Summary.AgentID))
	size += ord.String.Size(v.Summary.Name)
	size += ord.String.Size(v.Summary.Description)
	size += ord.String.Size(v.Summary.Image)
	size += stringsMUS.Size(v.Summary.Owners)
	size += stringsMUS.Size(v.Summary.Operators)
	size += ord.String.Size(v.Summary.WalletAddress)
	size += ord.String.Size(v.Summary.MCPEndpoint)
	size += ord.String.Size(v.Summary.MCPVersion)
	size += ord.String.Size(v.Summary.A2AEndpoint)
	size += ord.String.Size(v.Summary.A2AVersion)
	size += ord.String.Size(v.Summary.WebEndpoint)
	size += ord.String.Size(v.Summary.EmailEndpoint)
	size += ord.String.Size(v.Summary.ENS)
	size += ord.String.Size(v.Summary.DID)
	size += stringsMUS.Size(v.Summary.SupportedTrusts)
	size += stringsMUS.Size(v.Summary.A2ASkills)
	size += stringsMUS.Size(v.Summary.MCPTools)
	size += stringsMUS.Size(v.Summary.MCPPrompts)
	size += stringsMUS.Size(v.Summary.MCPResources)
	size += stringsMUS.Size(v.Summary.OASFSkills)
	size += stringsMUS.Size(v.Summary.OASFDomains)
	size += ord.Bool.Size(v.Summary.Active)
	size += ord.Bool.Size(v.Summary.X402Support)
	size += ord.Bool.Size(v.Summary.HasOASF)
	size += ord.String.Size(v.Summary.AgentURI)
	size += ord.String.Size(v.Summary.AgentURIType)
	size += varint.Int64.Size(v.Summary.CreatedAt)
	size += varint.Int64.Size(v.Summary.UpdatedAt)
	size += varint.Int64.Size(v.Summary.LastActivity)
	size += varint.Int64.Size(v.Summary.FeedbackCount)
	size += optFloat64MUS.Size(v.Summary.AverageValue)
	size += ord.String.Size(v.ContentHash)
	size += varint.Int64.Size(v.FetchedAt.UnixMicro())
	return size
}

// CursorMUS serializes Cursor values in the MUS format.
var CursorMUS = cursorMUS{}

type cursorMUS struct{}

func (cursorMUS) Marshal(v Cursor, bs []byte) (n int) {
	n = varint.Int.Marshal(cursorVersion, bs)
	n += ord.String.Marshal(v.Job, bs[n:])
	n += ord.String.Marshal(v.Position, bs[n:])
	n += varint.Int64.Marshal(v.UpdatedAt.UnixMicro(), bs[n:])
	return n
}

func (cursorMUS) Unmarshal(bs []byte) (v Cursor, n int, err error) {
	r := musReader{bs: bs}
	if version := r.count(); r.err == nil && version != cursorVersion {
		return v, r.n, fmt.Errorf("%w: unsupported cursor version %d",
			ErrSerializationFailed, version)
	}
	v.Job = r.str()
	v.Position = r.str()
	v.UpdatedAt = r.unixMicro()
	return v, r.n, r.err
}

func (cursorMUS) Size(v Cursor) (size int) {
	size = varint.Int.Size(cursorVersion)
	size += ord.String.Size(v.Job)
	size += ord.String.Size(v.Position)
	size += varint.Int64.Size(v.UpdatedAt.UnixMicro())
	return size
}

// stringsMUS serializes a string slice as an element count followed by the
// elements. An empty slice round-trips to nil.
var stringsMUS = stringsSer{}

type stringsSer struct{}

func (stringsSer) Marshal(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func (stringsSer) Unmarshal(bs []byte) (v []string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, fmt.Errorf("%w: negative slice length %d",
			ErrSerializationFailed, length)
	}
	if length == 0 {
		return nil, n, nil
	}
	v = make([]string, length)
	for i := range v {
		var n1 int
		v[i], n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

func (stringsSer) Size(v []string) (size int) {
	size = varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}

// optFloat64MUS serializes an optional float as a presence flag followed by
// the value.
var optFloat64MUS = optFloat64Ser{}

type optFloat64Ser struct{}

func (optFloat64Ser) Marshal(v *float64, bs []byte) (n int) {
	n = ord.Bool.Marshal(v != nil, bs)
	if v != nil {
		n += varint.Float64.Marshal(*v, bs[n:])
	}
	return n
}

func (optFloat64Ser) Unmarshal(bs []byte) (v *float64, n int, err error) {
	present, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || !present {
		return nil, n, err
	}
	f, n1, err := varint.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return nil, n, err
	}
	return &f, n, nil
}

func (optFloat64Ser) Size(v *float64) (size int) {
	size = ord.Bool.Size(v != nil)
	if v != nil {
		size += varint.Float64.Size(*v)
	}
	return size
}

// musReader decodes consecutive MUS fields, latching the first error so
// record walks stay flat.
type musReader struct {
	bs  []byte
	n   int
	err error
}

func (r *musReader) count() (v int) {
	if r.err != nil {
		return
	}
	var n int
	v, n, r.err = varint.Int.Unmarshal(r.bs[r.n:])
	r.n += n
	return
}

func (r *musReader) str() (v string) {
	if r.err != nil {
		return
	}
	var n int
	v, n, r.err = ord.String.Unmarshal(r.bs[r.n:])
	r.n += n
	return
}

func (r *musReader) strs() (v []string) {
	if r.err != nil {
		return
	}
	var n int
	v, n, r.err = stringsMUS.Unmarshal(r.bs[r.n:])
	r.n += n
	return
}

func (r *musReader) boolean() (v bool) {
	if r.err != nil {
		return
	}
	var n int
	v, n, r.err = ord.Bool.Unmarshal(r.bs[r.n:])
	r.n += n
	return
}

func (r *musReader) i64() (v int64) {
	if r.err != nil {
		return
	}
	var n int
	v, n, r.err = varint.Int64.Unmarshal(r.bs[r.n:])
	r.n += n
	return
}

func (r *musReader) u64() (v uint64) {
	if r.err != nil {
		return
	}
	var n int
	v, n, r.err = varint.Uint64.Unmarshal(r.bs[r.n:])
	r.n += n
	return
}

func (r *musReader) optF64() (v *float64) {
	if r.err != nil {
		return
	}
	var n int
	v, n, r.err = optFloat64MUS.Unmarshal(r.bs[r.n:])
	r.n += n
	return
}

func (r *musReader) unixMicro() time.Time {
	return time.UnixMicro(r.i64()).UTC()
}
