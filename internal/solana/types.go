package solana

import "encoding/json"

// ParsedTransaction is the jsonParsed shape of a getTransaction result,
// reduced to the fields the backend reads.
type ParsedTransaction struct {
	Meta        *TransactionMeta `json:"meta"`
	Transaction TransactionBody  `json:"transaction"`
}

// Failed reports whether the cluster recorded an execution error for the
// transaction.
func (t *ParsedTransaction) Failed() bool {
	return t.Meta != nil && !isJSONNull(t.Meta.Err)
}

type TransactionMeta struct {
	Err json.RawMessage `json:"err"`
}

type TransactionBody struct {
	Message TransactionMessage `json:"message"`
}

type TransactionMessage struct {
	Instructions []Instruction `json:"instructions"`
}

// Instruction is one instruction of a parsed transaction. Parsed is nil for
// instructions the RPC node could not decode (non-native programs).
type Instruction struct {
	Program string             `json:"program"`
	Parsed  *ParsedInstruction `json:"parsed"`
}

type ParsedInstruction struct {
	Type string       `json:"type"`
	Info TransferInfo `json:"info"`
}

// TransferInfo carries the fields of a system-program transfer. Other parsed
// instruction types may populate a subset; callers must check the
// instruction type before trusting these.
type TransferInfo struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Lamports    uint64 `json:"lamports"`
}

// IsSystemTransfer reports whether the instruction is a native value
// transfer.
func (i Instruction) IsSystemTransfer() bool {
	return i.Program == "system" && i.Parsed != nil && i.Parsed.Type == "transfer"
}
