package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyTransfer(t *testing.T) {
	tests := []struct {
		name     string
		from     string
		to       string
		expected TxKind
	}{
		{
			name:     "mint from zero address",
			from:     ZeroAddress,
			to:       "alice",
			expected: TxKindMint,
		},
		{
			name:     "mint from empty address",
			from:     "",
			to:       "alice",
			expected: TxKindMint,
		},
		{
			name:     "burn to zero address",
			from:     "alice",
			to:       ZeroAddress,
			expected: TxKindBurn,
		},
		{
			name:     "regular transfer",
			from:     "alice",
			to:       "bob",
			expected: TxKindTransfer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyTransfer(tt.from, tt.to))
		})
	}
}

func TestEventPayloadFieldNames(t *testing.T) {
	// Off-chain consumers reconstruct history from these exact field names.
	transfer, err := json.Marshal(TransferEvent{From: ZeroAddress, To: "alice", Value: 500})
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"0x0","to":"alice","value":500}`, string(transfer))

	action, err := json.Marshal(ActionEvent{
		From:     "alice",
		To:       "bob",
		ActionID: "A1",
		Value:    50,
		Time:     1700000000,
		IPFSHash: "QmProof",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"alice","to":"bob","actionID":"A1","value":50,"time":1700000000,"ipfsHash":"QmProof"}`, string(action))
}
