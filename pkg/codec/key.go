// Package codec implements fixed-format byte-string encodings for vertex,
// edge, index, lock and operation-log keys, plus a schema-aware row
// reader/writer.
package codec

import (
	"encoding/binary"
	"math"

	"github.com/cuemby/graphcore/pkg/types"
)

// keyType is the one-byte discriminant every key starts with, followed by
// the partition id, so a prefix scan over one kind of key within one
// partition is a single contiguous range.
type keyType byte

const (
	typeVertexExist keyType = 0x01
	typeTag         keyType = 0x02
	typeEdge        keyType = 0x03 // edge rows AND lock records (suffix distinguishes)
	typeIndex       keyType = 0x04
	typeOperation   keyType = 0x05
)

const (
	edgeSuffixRow  byte = 0x00
	edgeSuffixLock byte = 0x01
)

// VidCodec encodes/decodes vertex ids for a single space, whose vid width
// and kind are fixed at space-creation time.
type VidCodec struct {
	Len  int
	Kind types.VidKind
}

// EncodeVid renders v into exactly c.Len bytes, or returns
// error coded types.CodeInvalidVid if it cannot.
func (c VidCodec) EncodeVid(v types.Value) ([]byte, error) {
	switch c.Kind {
	case types.VidFixedString:
		if v.Kind != types.VString || len(v.S) != c.Len {
			return nil, invalidVid("vid string length mismatch")
		}
		return []byte(v.S), nil
	case types.VidInt64:
		if v.Kind != types.VInt {
			return nil, invalidVid("vid must be an integer")
		}
		buf := make([]byte, c.Len)
		// Sign-bit flip keeps unsigned byte-comparison order-preserving.
		u := uint64(v.I) ^ (1 << 63)
		var full [8]byte
		binary.BigEndian.PutUint64(full[:], u)
		if c.Len > 8 {
			return nil, invalidVid("vid length exceeds 8 bytes for integer space")
		}
		copy(buf, full[8-c.Len:])
		return buf, nil
	default:
		return nil, invalidVid("unknown vid kind")
	}
}

// DecodeVid reverses EncodeVid. raw must be exactly c.Len bytes.
func (c VidCodec) DecodeVid(raw []byte) (types.Value, error) {
	if len(raw) != c.Len {
		return types.Value{}, invalidVid("vid length mismatch on decode")
	}
	switch c.Kind {
	case types.VidFixedString:
		return types.StringValue(string(raw)), nil
	case types.VidInt64:
		var full [8]byte
		copy(full[8-c.Len:], raw)
		u := binary.BigEndian.Uint64(full[:])
		return types.IntValue(int64(u ^ (1 << 63))), nil
	default:
		return types.Value{}, invalidVid("unknown vid kind")
	}
}

func invalidVid(msg string) error {
	return types.NewError(types.CodeInvalidVid, "codec.Vid", errString(msg))
}

type errString string

func (e errString) Error() string { return string(e) }

// putPartition appends a big-endian 4-byte partition id.
func putPartition(buf []byte, part types.PartitionID) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(part))
	return append(buf, b[:]...)
}

// VertexExistKey builds the O(1)-existence-check marker key.
func (c VidCodec) VertexExistKey(part types.PartitionID, vid types.Value) ([]byte, error) {
	vidBytes, err := c.EncodeVid(vid)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 1+4+len(vidBytes))
	buf = append(buf, byte(typeVertexExist))
	buf = putPartition(buf, part)
	buf = append(buf, vidBytes...)
	return buf, nil
}

// TagKey builds a vertex-row key: (vid, tagId).
func (c VidCodec) TagKey(part types.PartitionID, vid types.Value, tagID int32) ([]byte, error) {
	vidBytes, err := c.EncodeVid(vid)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 1+4+len(vidBytes)+4)
	buf = append(buf, byte(typeTag))
	buf = putPartition(buf, part)
	buf = append(buf, vidBytes...)
	buf = putInt32(buf, tagID)
	return buf, nil
}

// TagPrefix builds the prefix identifying all tag rows of one vertex,
// regardless of tag id.
func (c VidCodec) TagPrefix(part types.PartitionID, vid types.Value) ([]byte, error) {
	vidBytes, err := c.EncodeVid(vid)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 1+4+len(vidBytes))
	buf = append(buf, byte(typeTag))
	buf = putPartition(buf, part)
	buf = append(buf, vidBytes...)
	return buf, nil
}

// AllTagRowsPrefix builds the prefix covering every tag row in a
// partition, across every vertex and every tag id. An index rebuild's
// initial full scan uses this rather than TagPrefix (which is scoped to
// one vid) and filters the decoded tag id itself.
func AllTagRowsPrefix(part types.PartitionID) []byte {
	buf := make([]byte, 0, 5)
	buf = append(buf, byte(typeTag))
	return putPartition(buf, part)
}

// DecodeTagKey reverses TagKey, given the space's fixed vid width.
func (c VidCodec) DecodeTagKey(key []byte) (vid types.Value, tagID int32, err error) {
	const head = 1 + 4
	if len(key) != head+c.Len+4 {
		return types.Value{}, 0, invalidVid("malformed tag key")
	}
	vid, err = c.DecodeVid(key[head : head+c.Len])
	if err != nil {
		return types.Value{}, 0, err
	}
	tagID = getInt32(key[head+c.Len:])
	return vid, tagID, nil
}

// AllEdgeRowsPrefix builds the prefix covering every edge row and lock
// record in a partition, for an index rebuild's full scan over edges.
func AllEdgeRowsPrefix(part types.PartitionID) []byte {
	buf := make([]byte, 0, 5)
	buf = append(buf, byte(typeEdge))
	return putPartition(buf, part)
}

// PartitionKeyPrefixes returns one prefix per key type rooted at part,
// covering every row a ClearSpace admin operation needs to remove:
// vertex-existence markers, tag rows, edge rows and lock records, index
// entries, and any pending operation-log entries from an in-progress
// index rebuild.
func PartitionKeyPrefixes(part types.PartitionID) [][]byte {
	kinds := []keyType{typeVertexExist, typeTag, typeEdge, typeIndex, typeOperation}
	out := make([][]byte, len(kinds))
	for i, t := range kinds {
		buf := make([]byte, 0, 5)
		buf = append(buf, byte(t))
		out[i] = putPartition(buf, part)
	}
	return out
}

func putInt32(buf []byte, v int32) []byte {
	var b [4]byte
	// Sign-bit flip so signed values still sort ascending as unsigned bytes.
	binary.BigEndian.PutUint32(b[:], uint32(v)^(1<<31))
	return append(buf, b[:]...)
}

func getInt32(b []byte) int32 {
	return int32(binary.BigEndian.Uint32(b) ^ (1 << 31))
}

func putRank(buf []byte, rank int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(rank)^(1<<63))
	return append(buf, b[:]...)
}

func getRank(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b) ^ (1 << 63))
}

// edgeKeyBody encodes the (srcVid, edgeType, rank, dstVid) tuple shared by
// edge rows and their lock records; EdgeKey/LockKey append the
// distinguishing suffix byte so a lock record always sorts adjacent to its
// corresponding edge row.
func (c VidCodec) edgeKeyBody(part types.PartitionID, src types.Value, edgeType int32, rank int64, dst types.Value) ([]byte, error) {
	srcBytes, err := c.EncodeVid(src)
	if err != nil {
		return nil, err
	}
	dstBytes, err := c.EncodeVid(dst)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 1+4+len(srcBytes)+4+8+len(dstBytes)+1)
	buf = append(buf, byte(typeEdge))
	buf = putPartition(buf, part)
	buf = append(buf, srcBytes...)
	buf = putInt32(buf, edgeType)
	buf = putRank(buf, rank)
	buf = append(buf, dstBytes...)
	return buf, nil
}

// EdgeKey builds an edge-row key.
func (c VidCodec) EdgeKey(part types.PartitionID, src types.Value, edgeType int32, rank int64, dst types.Value) ([]byte, error) {
	body, err := c.edgeKeyBody(part, src, edgeType, rank, dst)
	if err != nil {
		return nil, err
	}
	return append(body, edgeSuffixRow), nil
}

// LockKey builds the soft-lock record key adjacent to the corresponding
// edge row.
func (c VidCodec) LockKey(part types.PartitionID, src types.Value, edgeType int32, rank int64, dst types.Value) ([]byte, error) {
	body, err := c.edgeKeyBody(part, src, edgeType, rank, dst)
	if err != nil {
		return nil, err
	}
	return append(body, edgeSuffixLock), nil
}

// IsLockKey reports whether a raw key (as returned by a prefix scan) is a
// lock record rather than an edge row, by checking its trailing suffix
// byte. The key itself is not modified.
func IsLockKey(key []byte) bool {
	return len(key) > 0 && key[len(key)-1] == edgeSuffixLock
}

// EdgePrefix builds the prefix for all edges (and locks) of one edge type
// rooted at src; SingleEdgeNode prefix-scans this.
func (c VidCodec) EdgePrefix(part types.PartitionID, src types.Value, edgeType int32) ([]byte, error) {
	srcBytes, err := c.EncodeVid(src)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 1+4+len(srcBytes)+4)
	buf = append(buf, byte(typeEdge))
	buf = putPartition(buf, part)
	buf = append(buf, srcBytes...)
	buf = putInt32(buf, edgeType)
	return buf, nil
}

// AllEdgesPrefix builds the prefix for every edge type rooted at src, used
// by the multi-edge iterator behind HashJoinNode.
func (c VidCodec) AllEdgesPrefix(part types.PartitionID, src types.Value) ([]byte, error) {
	srcBytes, err := c.EncodeVid(src)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, 1+4+len(srcBytes))
	buf = append(buf, byte(typeEdge))
	buf = putPartition(buf, part)
	buf = append(buf, srcBytes...)
	return buf, nil
}

// DecodeEdgeKey parses the (srcVid, edgeType, rank, dstVid) components of
// an edge row or lock key previously built by EdgeKey/LockKey.
func (c VidCodec) DecodeEdgeKey(key []byte) (src types.Value, edgeType int32, rank int64, dst types.Value, isLock bool, err error) {
	if len(key) < 1+4+1 {
		err = invalidVid("edge key too short")
		return
	}
	isLock = key[len(key)-1] == edgeSuffixLock
	body := key[1+4 : len(key)-1] // strip type+partition prefix and suffix
	if len(body) < c.Len+4+8+c.Len {
		err = invalidVid("edge key body length mismatch")
		return
	}
	off := 0
	src, err = c.DecodeVid(body[off : off+c.Len])
	if err != nil {
		return
	}
	off += c.Len
	edgeType = getInt32(body[off : off+4])
	off += 4
	rank = getRank(body[off : off+8])
	off += 8
	dst, err = c.DecodeVid(body[off : off+c.Len])
	return
}

// OperationKey builds an operation-log record key for an online index
// rebuild; seq is a per-partition monotonic counter supplied by the
// caller so entries replay in order.
func OperationKey(part types.PartitionID, indexID int32, seq uint64) []byte {
	buf := make([]byte, 0, 1+4+4+8)
	buf = append(buf, byte(typeOperation))
	buf = putPartition(buf, part)
	buf = putInt32(buf, indexID)
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], seq)
	return append(buf, seqBuf[:]...)
}

// OperationPrefix builds the prefix for all pending operation-log records
// of one index, so the rebuilder can drain them in key order.
func OperationPrefix(part types.PartitionID, indexID int32) []byte {
	buf := make([]byte, 0, 1+4+4)
	buf = append(buf, byte(typeOperation))
	buf = putPartition(buf, part)
	buf = putInt32(buf, indexID)
	return buf
}

// encodeIndexField order-preservingly encodes one column of an index key.
// A leading null byte (0x00 absent / 0x01 present) lets nullable columns
// sort before any value; strings are escaped (0x00 -> 0x00 0xFF, terminated
// by 0x00 0x00) so embedded NUL bytes cannot corrupt ordering.
func encodeIndexField(v types.Value) []byte {
	if v.IsNull() {
		return []byte{0x00}
	}
	out := []byte{0x01}
	switch v.Kind {
	case types.VBool:
		if v.B {
			return append(out, 0x01)
		}
		return append(out, 0x00)
	case types.VInt, types.VRank:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.I)^(1<<63))
		return append(out, b[:]...)
	case types.VFloat:
		return append(out, encodeOrderedFloat(v.F)...)
	case types.VString:
		return append(out, escapeString(v.S)...)
	case types.VTimestamp:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v.T.UnixNano())^(1<<63))
		return append(out, b[:]...)
	default:
		return out
	}
}

// encodeOrderedFloat produces an 8-byte big-endian encoding whose unsigned
// byte order matches IEEE-754 float ordering: flip the sign bit for
// non-negative numbers, invert every bit for negative numbers.
func encodeOrderedFloat(f float64) []byte {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], bits)
	return b[:]
}

func escapeString(s string) []byte {
	out := make([]byte, 0, len(s)+2)
	for i := 0; i < len(s); i++ {
		if s[i] == 0x00 {
			out = append(out, 0x00, 0xFF)
		} else {
			out = append(out, s[i])
		}
	}
	return append(out, 0x00, 0x00)
}

// IndexKey builds a secondary-index entry key: (indexId, fields..., pk).
// pk is the vid for a vertex index, or the caller's own encoding of
// (srcVid, rank, dstVid) for an edge index.
func IndexKey(part types.PartitionID, indexID int32, fields []types.Value, pk []byte) []byte {
	buf := make([]byte, 0, 1+4+4+32+len(pk))
	buf = append(buf, byte(typeIndex))
	buf = putPartition(buf, part)
	buf = putInt32(buf, indexID)
	for _, f := range fields {
		buf = append(buf, encodeIndexField(f)...)
	}
	buf = append(buf, pk...)
	return buf
}

// IndexPrefix builds the longest-matching-prefix scan bound for a set of
// equality hints on leading columns, used by IndexScanNode.
func IndexPrefix(part types.PartitionID, indexID int32, equalFields []types.Value) []byte {
	buf := make([]byte, 0, 1+4+4+32)
	buf = append(buf, byte(typeIndex))
	buf = putPartition(buf, part)
	buf = putInt32(buf, indexID)
	for _, f := range equalFields {
		buf = append(buf, encodeIndexField(f)...)
	}
	return buf
}

// EdgePK encodes an edge's (srcVid, rank, dstVid) as the primary-key suffix
// of an edge index entry.
func (c VidCodec) EdgePK(src types.Value, rank int64, dst types.Value) ([]byte, error) {
	srcBytes, err := c.EncodeVid(src)
	if err != nil {
		return nil, err
	}
	dstBytes, err := c.EncodeVid(dst)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, len(srcBytes)+8+len(dstBytes))
	buf = append(buf, srcBytes...)
	buf = putRank(buf, rank)
	buf = append(buf, dstBytes...)
	return buf, nil
}

// DecodeEdgePK reverses EdgePK.
func (c VidCodec) DecodeEdgePK(pk []byte) (src types.Value, rank int64, dst types.Value, err error) {
	if len(pk) != c.Len+8+c.Len {
		err = invalidVid("edge pk length mismatch")
		return
	}
	src, err = c.DecodeVid(pk[:c.Len])
	if err != nil {
		return
	}
	rank = getRank(pk[c.Len : c.Len+8])
	dst, err = c.DecodeVid(pk[c.Len+8:])
	return
}
