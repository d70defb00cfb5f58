package storage

import (
	"chat-gateway/domain"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Values are stored in protobuf wire format. Field numbers are part of the
// on-disk format and must never be reused.
const (
	messageID      protowire.Number = 1
	messageGroup   protowire.Number = 2
	messageAuthor  protowire.Number = 3
	messageText    protowire.Number = 4
	messageAt      protowire.Number = 5
	messageSeq     protowire.Number = 6
	groupID        protowire.Number = 1
	groupName      protowire.Number = 2
	groupKind      protowire.Number = 3
	groupImage     protowire.Number = 4
	groupMember    protowire.Number = 5
	groupCreatedAt protowire.Number = 6
	headCount      protowire.Number = 1
	headLastAt     protowire.Number = 2
)

// head tracks what Append needs to assign the next position of a group.
type head struct {
	Count  uint64
	LastAt int64
}

func EncodeMessage(m domain.Message) []byte {
	var b []byte
	b = appendString(b, messageID, m.ID.String())
	b = appendString(b, messageGroup, string(m.GroupID))
	b = appendString(b, messageAuthor, string(m.AuthorID))
	b = appendString(b, messageText, m.Text)
	b = appendVarint(b, messageAt, uint64(m.CreatedAt.UnixNano()))
	b = appendVarint(b, messageSeq, m.Seq)
	return b
}

func DecodeMessage(b []byte) (domain.Message, error) {
	var m domain.Message
	err := consumeFields(b, func(num protowire.Number, s string, v uint64) error {
		switch num {
		case messageID:
			id, err := uuid.Parse(s)
			if err != nil {
				return err
			}
			m.ID = id
		case messageGroup:
			m.GroupID = domain.GroupID(s)
		case messageAuthor:
			m.AuthorID = domain.UserID(s)
		case messageText:
			m.Text = s
		case messageAt:
			m.CreatedAt = time.Unix(0, int64(v)).UTC()
		case messageSeq:
			m.Seq = v
		}
		return nil
	})
	return m, err
}

func EncodeGroup(g domain.Group) []byte {
	var b []byte
	b = appendString(b, groupID, string(g.ID))
	b = appendString(b, groupName, g.Name)
	b = appendString(b, groupKind, string(g.Kind))
	b = appendString(b, groupImage, g.Image)
	for _, member := range g.Members {
		b = appendString(b, groupMember, string(member))
	}
	b = appendVarint(b, groupCreatedAt, uint64(g.CreatedAt.UnixNano()))
	return b
}

func DecodeGroup(b []byte) (domain.Group, error) {
	var g domain.Group
	err := consumeFields(b, func(num protowire.Number, s string, v uint64) error {
		switch num {
		case groupID:
			g.ID = domain.GroupID(s)
		case groupName:
			g.Name = s
		case groupKind:
			g.Kind = domain.GroupKind(s)
		case groupImage:
			g.Image = s
		case groupMember:
			g.Members = append(g.Members, domain.UserID(s))
		case groupCreatedAt:
			g.CreatedAt = time.Unix(0, int64(v)).UTC()
		}
		return nil
	})
	return g, err
}

func encodeHead(h head) []byte {
	var b []byte
	b = appendVarint(b, headCount, h.Count)
	b = appendVarint(b, headLastAt, uint64(h.LastAt))
	return b
}

func decodeHead(b []byte) (head, error) {
	var h head
	err := consumeFields(b, func(num protowire.Number, _ string, v uint64) error {
		switch num {
		case headCount:
			h.Count = v
		case headLastAt:
			h.LastAt = int64(v)
		}
		return nil
	})
	return h, err
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// consumeFields walks a flat record of string and varint fields.
// Unknown fields are skipped so older binaries can read newer records.
func consumeFields(b []byte, fn func(num protowire.Number, s string, v uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("decoding tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch typ {
		case protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return fmt.Errorf("decoding field %d: %w", num, protowire.ParseError(n))
			}
			if err := fn(num, s, 0); err != nil {
				return err
			}
			b = b[n:]
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("decoding field %d: %w", num, protowire.ParseError(n))
			}
			if err := fn(num, "", v); err != nil {
				return err
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("skipping field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return nil
}
