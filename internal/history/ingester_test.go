package history

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deustocoin/sc-ledger/internal/adapter"
	"github.com/deustocoin/sc-ledger/internal/domain"
	"github.com/deustocoin/sc-ledger/internal/logger"
	"github.com/deustocoin/sc-ledger/internal/store/schema"
	"github.com/deustocoin/sc-ledger/internal/worldstate"
)

func TestMain(m *testing.M) {
	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		panic(err)
	}
	m.Run()
}

type fakeMsg struct {
	data   []byte
	acked  bool
	naked  bool
	termed bool
}

func (m *fakeMsg) Data() []byte { return m.data }
func (m *fakeMsg) Metadata() (*jetstream.MsgMetadata, error) {
	return &jetstream.MsgMetadata{NumDelivered: 1}, nil
}
func (m *fakeMsg) Ack() error  { m.acked = true; return nil }
func (m *fakeMsg) Nak() error  { m.naked = true; return nil }
func (m *fakeMsg) Term() error { m.termed = true; return nil }

type fakeStore struct {
	mu        sync.Mutex
	rows      []*schema.Transaction
	insertErr error
}

func (s *fakeStore) GetStateEntry(ctx context.Context, key string) ([]byte, error) {
	return nil, nil
}

func (s *fakeStore) PutStateEntries(ctx context.Context, writes []worldstate.Write) error {
	return nil
}

func (s *fakeStore) InsertTransaction(ctx context.Context, tx *schema.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.rows = append(s.rows, tx)
	return nil
}

func (s *fakeStore) ListTransactionsByAccount(ctx context.Context, account string, limit int) ([]schema.Transaction, error) {
	return nil, nil
}

func (s *fakeStore) inserted() []*schema.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time                      { return c.now }
func (c *fixedClock) Since(t time.Time) time.Duration     { return c.now.Sub(t) }
func (c *fixedClock) Unix(sec int64, nsec int64) time.Time { return time.Unix(sec, nsec) }

func newTestIngester(st *fakeStore) *ingester {
	return &ingester{
		store: st,
		json:  adapter.NewJSON(),
		clock: &fixedClock{now: time.Unix(1700000100, 0)},
	}
}

func eventMsg(t *testing.T, name domain.EventName, txID string, payload interface{}) *fakeMsg {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	envelope, err := json.Marshal(domain.ChaincodeEvent{
		TxID:      txID,
		Name:      name,
		Payload:   data,
		Timestamp: time.Unix(1700000100, 0),
	})
	require.NoError(t, err)
	return &fakeMsg{data: envelope}
}

func TestHandleTransferEvent(t *testing.T) {
	st := &fakeStore{}
	i := newTestIngester(st)

	msg := eventMsg(t, domain.EventTransfer, "tx-1", domain.TransferEvent{
		From: "alice", To: "bob", Value: 200,
	})
	i.handleMessage(context.Background(), msg)

	assert.True(t, msg.acked)
	rows := st.inserted()
	require.Len(t, rows, 1)
	assert.NotEmpty(t, rows[0].ID)
	assert.Equal(t, "tx-1", rows[0].TxID)
	assert.Equal(t, string(domain.TxKindTransfer), rows[0].Kind)
	assert.Equal(t, "alice", rows[0].FromAccount)
	assert.Equal(t, "bob", rows[0].ToAccount)
	assert.Equal(t, int64(200), rows[0].Amount)
	assert.Nil(t, rows[0].ActionID)
}

func TestTransferEventClassification(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		kind domain.TxKind
	}{
		{"mint from zero address", domain.ZeroAddress, "alice", domain.TxKindMint},
		{"burn to zero address", "alice", domain.ZeroAddress, domain.TxKindBurn},
		{"regular transfer", "alice", "bob", domain.TxKindTransfer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &fakeStore{}
			i := newTestIngester(st)

			msg := eventMsg(t, domain.EventTransfer, "tx-1", domain.TransferEvent{
				From: tt.from, To: tt.to, Value: 100,
			})
			i.handleMessage(context.Background(), msg)

			rows := st.inserted()
			require.Len(t, rows, 1)
			assert.Equal(t, string(tt.kind), rows[0].Kind)
		})
	}
}

func TestHandleActionEvent(t *testing.T) {
	st := &fakeStore{}
	i := newTestIngester(st)

	msg := eventMsg(t, domain.EventAction, "tx-2", domain.ActionEvent{
		From:     "alice",
		To:       "bob",
		ActionID: "A1",
		Value:    50,
		Time:     1700000000,
		IPFSHash: "QmProof",
	})
	i.handleMessage(context.Background(), msg)

	assert.True(t, msg.acked)
	rows := st.inserted()
	require.Len(t, rows, 1)
	assert.Equal(t, string(domain.TxKindAction), rows[0].Kind)
	require.NotNil(t, rows[0].ActionID)
	assert.Equal(t, "A1", *rows[0].ActionID)
	require.NotNil(t, rows[0].ActionTime)
	assert.Equal(t, int64(1700000000), rows[0].ActionTime.Unix())
	require.NotNil(t, rows[0].IPFSHash)
	assert.Equal(t, "QmProof", *rows[0].IPFSHash)
}

func TestHandleMalformedEnvelopeTerminates(t *testing.T) {
	st := &fakeStore{}
	i := newTestIngester(st)

	msg := &fakeMsg{data: []byte("{not json")}
	i.handleMessage(context.Background(), msg)

	assert.True(t, msg.termed)
	assert.Empty(t, st.inserted())
}

func TestHandleMalformedPayloadTerminates(t *testing.T) {
	st := &fakeStore{}
	i := newTestIngester(st)

	envelope, err := json.Marshal(domain.ChaincodeEvent{
		TxID:    "tx-3",
		Name:    domain.EventTransfer,
		Payload: []byte(`"not an object"`),
	})
	require.NoError(t, err)

	msg := &fakeMsg{data: envelope}
	i.handleMessage(context.Background(), msg)

	assert.True(t, msg.termed)
	assert.Empty(t, st.inserted())
}

func TestHandleUnrecognizedEventAcks(t *testing.T) {
	st := &fakeStore{}
	i := newTestIngester(st)

	msg := eventMsg(t, domain.EventName("Upgrade"), "tx-4", map[string]string{"v": "2"})
	i.handleMessage(context.Background(), msg)

	assert.True(t, msg.acked)
	assert.False(t, msg.termed)
	assert.Empty(t, st.inserted())
}

func TestHandleInsertFailureNaks(t *testing.T) {
	st := &fakeStore{insertErr: errors.New("connection refused")}
	i := newTestIngester(st)

	// A canceled context cuts the retry loop short
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg := eventMsg(t, domain.EventTransfer, "tx-5", domain.TransferEvent{
		From: "alice", To: "bob", Value: 10,
	})
	i.handleMessage(ctx, msg)

	assert.True(t, msg.naked)
	assert.False(t, msg.acked)
}

type fakeConsumeContext struct{}

func (c *fakeConsumeContext) Stop()  {}
func (c *fakeConsumeContext) Drain() {}
func (c *fakeConsumeContext) Closed() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakeConsumer struct {
	msgs []adapter.Message
}

func (c *fakeConsumer) Consume(handler adapter.MessageHandler, opts ...jetstream.PullConsumeOpt) (adapter.ConsumeContext, error) {
	for _, m := range c.msgs {
		handler(m)
	}
	return &fakeConsumeContext{}, nil
}

func (c *fakeConsumer) Info(ctx context.Context) (*jetstream.ConsumerInfo, error) {
	return &jetstream.ConsumerInfo{Name: "test-consumer"}, nil
}

type fakeJetStream struct {
	consumer  *fakeConsumer
	gotStream string
	gotConfig jetstream.ConsumerConfig
}

func (f *fakeJetStream) Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	return &jetstream.PubAck{}, nil
}

func (f *fakeJetStream) CreateOrUpdateConsumer(ctx context.Context, stream string, cfg jetstream.ConsumerConfig) (adapter.Consumer, error) {
	f.gotStream = stream
	f.gotConfig = cfg
	return f.consumer, nil
}

func TestRunIngestsEvents(t *testing.T) {
	st := &fakeStore{}
	i := newTestIngester(st)
	i.config = Config{
		StreamName:   "LEDGER_EVENTS",
		ConsumerName: "historyd",
	}

	msg := eventMsg(t, domain.EventTransfer, "tx-6", domain.TransferEvent{
		From: domain.ZeroAddress, To: "alice", Value: 500,
	})
	js := &fakeJetStream{consumer: &fakeConsumer{msgs: []adapter.Message{msg}}}
	i.js = js

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := i.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, "LEDGER_EVENTS", js.gotStream)
	assert.Equal(t, "historyd", js.gotConfig.Durable)
	assert.Equal(t, "ledger.events.>", js.gotConfig.FilterSubject)

	assert.True(t, msg.acked)
	rows := st.inserted()
	require.Len(t, rows, 1)
	assert.Equal(t, string(domain.TxKindMint), rows[0].Kind)
}
