package csg

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("csg: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// EntryRecord is the serializable form of a chain entry. Geometry is
// reduced to its bounding box.
type EntryRecord struct {
	Label     string      `cbor:"1,keyasint" json:"label"`
	Op        string      `cbor:"2,keyasint" json:"op"`
	NodeID    int         `cbor:"3,keyasint" json:"nodeId"`
	Flags     Flag        `cbor:"4,keyasint,omitempty" json:"flags,omitempty"`
	Transform [16]float64 `cbor:"5,keyasint" json:"transform"`
	Min       [3]float64  `cbor:"6,keyasint" json:"min"`
	Max       [3]float64  `cbor:"7,keyasint" json:"max"`
}

// ChainRecord is the serializable form of a chain.
type ChainRecord struct {
	Entries []EntryRecord `cbor:"1,keyasint" json:"entries"`
}

// Record converts the chain to its serializable form. A nil chain yields
// a nil record.
func (c *Chain) Record() *ChainRecord {
	if c == nil {
		return nil
	}
	r := &ChainRecord{Entries: make([]EntryRecord, 0, len(c.Entries))}
	for _, e := range c.Entries {
		er := EntryRecord{
			Label:     e.Label,
			Op:        e.Op.String(),
			NodeID:    e.NodeID,
			Flags:     e.Flags,
			Transform: e.Transform,
		}
		if e.Geometry != nil {
			er.Min, er.Max = e.Geometry.BoundingBox()
		}
		r.Entries = append(r.Entries, er)
	}
	return r
}

// MarshalChain serializes a chain to canonical CBOR bytes.
func MarshalChain(c *Chain) ([]byte, error) {
	return cborEncMode.Marshal(c.Record())
}

// Marshal serializes any value with the canonical encoding used for chains.
func Marshal(v any) ([]byte, error) {
	return cborEncMode.Marshal(v)
}

// Digest returns the SHA-256 of the chain's canonical encoding. Equal
// digests mean a renderer already showing one chain can keep it.
func (c *Chain) Digest() ([32]byte, error) {
	data, err := MarshalChain(c)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}
