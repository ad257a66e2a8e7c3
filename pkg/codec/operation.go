package codec

import "github.com/cuemby/graphcore/pkg/types"

// OperationEntryKind distinguishes the two outcomes a write leaves behind
// for an index that is mid-rebuild: its online writer can't safely touch
// an index not yet caught up with history, so it logs the intent instead.
type OperationEntryKind uint8

const (
	OperationDelete OperationEntryKind = 1
	OperationModify OperationEntryKind = 2
)

// EncodeOperationEntry packs one operation-log entry's kind and the
// primary-key bytes (a vid, or an edge index's EdgePK) the background
// rebuilder must reconcile against the index once it catches up.
func EncodeOperationEntry(kind OperationEntryKind, pk []byte) []byte {
	out := make([]byte, 0, 1+len(pk))
	out = append(out, byte(kind))
	return append(out, pk...)
}

// DecodeOperationEntry reverses EncodeOperationEntry.
func DecodeOperationEntry(raw []byte) (OperationEntryKind, []byte, error) {
	if len(raw) < 1 {
		return 0, nil, types.NewError(types.CodeInvalidData, "codec.DecodeOperationEntry", errString("empty operation-log entry"))
	}
	return OperationEntryKind(raw[0]), raw[1:], nil
}
