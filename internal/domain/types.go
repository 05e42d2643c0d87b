package domain

import (
	"time"
)

// EventName identifies a chaincode event type
type EventName string

const (
	EventTransfer EventName = "Transfer"
	EventAction   EventName = "Action"
)

// Function identifies a contract transaction function
type Function string

const (
	FnTokenName       Function = "tokenName"
	FnSymbol          Function = "symbol"
	FnDecimals        Function = "decimals"
	FnTotalSupply     Function = "totalSupply"
	FnBalanceOf       Function = "balanceOf"
	FnTransfer        Function = "transfer"
	FnMint            Function = "mint"
	FnBurn            Function = "burn"
	FnProcessAction   Function = "processAction"
	FnSetOption       Function = "setOption"
	FnClientAccountID Function = "clientAccountID"
)

// TxKind classifies a history row reconstructed from chain events
type TxKind string

const (
	TxKindMint     TxKind = "mint"
	TxKindBurn     TxKind = "burn"
	TxKindTransfer TxKind = "transfer"
	TxKindAction   TxKind = "action"
)

// TxSubmission is a signed transaction submission as delivered by the
// gateway. Amounts and ids arrive as strings and are parsed by the contract
// at the invocation boundary.
type TxSubmission struct {
	TxID        string    `json:"tx_id"`        // client-assigned id, generated by the runtime when empty
	Fn          Function  `json:"fn"`           // contract function name
	Args        []string  `json:"args"`         // positional string arguments
	MSPID       string    `json:"msp_id"`       // verified organization membership of the submitter
	ClientID    string    `json:"client_id"`    // verified client identity of the submitter
	SubmittedAt time.Time `json:"submitted_at"` // gateway receipt time
}

// TransferEvent is the payload of a "Transfer" chaincode event. Field names
// are fixed for compatibility with off-chain consumers.
type TransferEvent struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value int64  `json:"value"`
}

// ActionEvent is the payload of an "Action" chaincode event, the canonical
// record of a rewarded action. Field names are fixed for compatibility with
// off-chain consumers.
type ActionEvent struct {
	From     string `json:"from"`
	To       string `json:"to"`
	ActionID string `json:"actionID"`
	Value    int64  `json:"value"`
	Time     int64  `json:"time"`
	IPFSHash string `json:"ipfsHash"`
}

// ChaincodeEvent is the envelope published to the message broker after a
// transaction commits. Payload holds the JCS-canonicalized event JSON.
type ChaincodeEvent struct {
	TxID      string    `json:"tx_id"`
	Name      EventName `json:"name"`
	Payload   []byte    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// ClassifyTransfer maps a transfer event to a history row kind based on the
// zero-address sentinel.
func ClassifyTransfer(from, to string) TxKind {
	if from == "" || from == ZeroAddress {
		return TxKindMint
	}
	if to == "" || to == ZeroAddress {
		return TxKindBurn
	}
	return TxKindTransfer
}
