package cache

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/goliatone/go-shiftboard/recordset"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// DefaultMaxKeyLength is the key length above which the argument segment is
// replaced by its hash.
const DefaultMaxKeyLength = 256

// defaultKeySerializer builds "kind::operation::args" keys. The args segment
// is the JSON form of filter, page and params; encoding/json writes map keys
// in sorted order, so equal requests always produce equal keys.
type defaultKeySerializer struct {
	maxLen int
}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{maxLen: DefaultMaxKeyLength}
}

// NewKeySerializer creates a serializer that hashes argument segments once a
// key would exceed maxLen. A maxLen of zero or less never hashes.
func NewKeySerializer(maxLen int) KeySerializer {
	return &defaultKeySerializer{maxLen: maxLen}
}

// KindPrefix returns the prefix shared by every key of kind.
func KindPrefix(kind string) string {
	return kind + KeySeparator
}

type keyArgs struct {
	Filter recordset.Filter    `json:"f,omitempty"`
	Page   *recordset.PageSpec `json:"p,omitempty"`
	Params map[string]any      `json:"o,omitempty"`
}

// SerializeKey implements KeySerializer.
func (s *defaultKeySerializer) SerializeKey(req recordset.Request) string {
	prefix := KindPrefix(req.Kind) + string(req.Operation)

	args := keyArgs{Filter: req.Filter, Page: req.Page, Params: req.Params}
	if len(args.Filter) == 0 && args.Page == nil && len(args.Params) == 0 {
		return prefix
	}

	segment := s.serializeArgs(args)
	key := prefix + KeySeparator + segment
	if s.maxLen > 0 && len(key) > s.maxLen {
		return prefix + KeySeparator + "h:" + strconv.FormatUint(xxhash.Sum64String(segment), 16)
	}
	return key
}

func (s *defaultKeySerializer) serializeArgs(args keyArgs) string {
	data, err := json.Marshal(args)
	if err == nil {
		return string(data)
	}
	// fmt prints maps with sorted keys too.
	return fmt.Sprintf("fallback:%v|%v|%v", args.Filter, args.Page, args.Params)
}
