package state

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// StateHeader is stored under KeyState in protobuf wire format:
//
//	1: height   (varint)
//	2: chain_id (bytes)
//	3: hash     (bytes)
//	4: root     (bytes)
type StateHeader struct {
	Height   uint64
	ChainId  string
	Hash     []byte
	RootHash []byte
}

var errHeaderTruncated = errors.New("state header truncated")

func (h *StateHeader) GetHash() []byte {
	if h == nil {
		return nil
	}
	return h.Hash
}

func (h *StateHeader) Clone() *StateHeader {
	n := &StateHeader{Height: h.Height, ChainId: h.ChainId}
	if h.Hash != nil {
		n.Hash = append([]byte(nil), h.Hash...)
	}
	if h.RootHash != nil {
		n.RootHash = append([]byte(nil), h.RootHash...)
	}
	return n
}

func (h *StateHeader) Marshal() []byte {
	var b []byte
	if h.Height != 0 {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, h.Height)
	}
	if h.ChainId != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, h.ChainId)
	}
	if len(h.Hash) != 0 {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, h.Hash)
	}
	if len(h.RootHash) != 0 {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, h.RootHash)
	}
	return b
}

func (h *StateHeader) Unmarshal(b []byte) error {
	*h = StateHeader{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errHeaderTruncated
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errHeaderTruncated
			}
			h.Height = v
			b = b[n:]
		case (num == 2 || num == 3 || num == 4) && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errHeaderTruncated
			}
			switch num {
			case 2:
				h.ChainId = string(v)
			case 3:
				h.Hash = append([]byte(nil), v...)
			case 4:
				h.RootHash = append([]byte(nil), v...)
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("state header field %d: %w", num, errHeaderTruncated)
			}
			b = b[n:]
		}
	}
	return nil
}
