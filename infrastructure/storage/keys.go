package storage

import (
	"chat-gateway/domain"
	"fmt"
)

// Key layout, all in one badger keyspace:
//
//	group:{group_id}                         -> encoded group
//	member:{user_id}:{group_id}              -> empty, membership index
//	head:{group_id}                          -> encoded head (count, last timestamp)
//	msg:{group_id}:{unix_nano_19}:{seq_20}   -> encoded message
//
// The zero padding keeps lexicographical order equal to (timestamp, seq) order.
const (
	GroupPrefix  = "group:"
	memberPrefix = "member:"
	headPrefix   = "head:"
	msgPrefix    = "msg:"
)

func groupKey(groupID domain.GroupID) []byte {
	return []byte(GroupPrefix + string(groupID))
}

func memberKey(userID domain.UserID, groupID domain.GroupID) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", memberPrefix, userID, groupID))
}

func memberUserPrefix(userID domain.UserID) []byte {
	return []byte(fmt.Sprintf("%s%s:", memberPrefix, userID))
}

func headKey(groupID domain.GroupID) []byte {
	return []byte(headPrefix + string(groupID))
}

// MessagePrefix is the prefix shared by every message of a group.
func MessagePrefix(groupID domain.GroupID) []byte {
	return []byte(fmt.Sprintf("%s%s:", msgPrefix, groupID))
}

func messageKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%020d", msgPrefix, m.GroupID, m.CreatedAt.UnixNano(), m.Seq))
}

// lastKeyFor returns a key sorting after every message of the group,
// the starting point of a reverse scan.
func lastKeyFor(groupID domain.GroupID) []byte {
	return append(MessagePrefix(groupID), 0xFF)
}
