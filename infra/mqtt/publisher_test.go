package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/chargesim/core/metrics"
	"github.com/kilianp07/chargesim/core/simulation"
)

type publishedMsg struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// mockClient implements pahoClient for tests.
type mockClient struct {
	mu          sync.Mutex
	opts        *paho.ClientOptions
	connectErr  error
	publishErrs []error
	published   []publishedMsg
	disconnects int
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	return &dummyToken{err: m.connectErr}
}
func (m *mockClient) Disconnect(uint) { m.disconnects++ }
func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, publishedMsg{topic, qos, retained, payload.([]byte)})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

func withMock(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() {
		newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) }
	})
}

func sampleRun(ctx string) coremetrics.RunEvent {
	cfg := simulation.DefaultConfig()
	return coremetrics.RunEvent{
		Results: &simulation.Results{
			RunID:                 "r1",
			Config:                cfg,
			TotalEnergyKWh:        1234,
			MaxPowerKW:            110,
			MaxTheoreticalPowerKW: 220,
			ConcurrencyFactor:     0.5,
			Sessions:              40,
		},
		Context: ctx,
		Time:    time.Unix(1700000000, 0).UTC(),
	}
}

func TestPublisherRecordRun(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	p, err := NewPublisher(Config{Broker: "tcp://localhost:1883", TopicPrefix: "fleet", QoS: 1, Retain: true})
	require.NoError(t, err)

	require.NoError(t, p.RecordRun(sampleRun(coremetrics.ContextRun)))
	require.Len(t, mc.published, 1)
	msg := mc.published[0]
	assert.Equal(t, "fleet/runs/r1", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.True(t, msg.retained)

	var rep RunReport
	require.NoError(t, json.Unmarshal(msg.payload, &rep))
	assert.Equal(t, "r1", rep.RunID)
	assert.Equal(t, "run", rep.Context)
	assert.Equal(t, 20, rep.Chargepoints)
	assert.Equal(t, 0.5, rep.ConcurrencyFactor)
}

func TestPublisherSkipsTrialRuns(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	p, err := NewPublisher(Config{Broker: "tcp://localhost:1883"})
	require.NoError(t, err)
	require.NoError(t, p.RecordRun(sampleRun(coremetrics.ContextTrial)))
	assert.Empty(t, mc.published)

	p.cfg.PublishTrials = true
	require.NoError(t, p.RecordRun(sampleRun(coremetrics.ContextTrial)))
	assert.Len(t, mc.published, 1)
}

func TestPublisherRecordTrialSummary(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	p, err := NewPublisher(Config{Broker: "tcp://localhost:1883"})
	require.NoError(t, err)

	require.NoError(t, p.RecordTrialSummary(coremetrics.TrialSummaryEvent{
		BatchID: "b1",
		Trials:  2,
		Mean:    0.4,
		Buckets: []coremetrics.FactorBucket{{Factor: 0.4, Count: 2}},
		Elapsed: 1500 * time.Millisecond,
	}))
	require.Len(t, mc.published, 1)
	assert.Equal(t, "chargesim/trials", mc.published[0].topic)

	var rep TrialsReport
	require.NoError(t, json.Unmarshal(mc.published[0].payload, &rep))
	assert.Equal(t, int64(1500), rep.ElapsedMS)
	assert.Equal(t, []coremetrics.FactorBucket{{Factor: 0.4, Count: 2}}, rep.Buckets)
}

func TestPublisherRetries(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	withMock(t, mc)
	p, err := NewPublisher(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1})
	require.NoError(t, err)
	require.NoError(t, p.RecordRun(sampleRun(coremetrics.ContextRun)))
	assert.Len(t, mc.published, 2)

	mc.publishErrs = []error{fmt.Errorf("a"), fmt.Errorf("b")}
	assert.Error(t, p.RecordRun(sampleRun(coremetrics.ContextRun)))
}

func TestNewPublisherErrors(t *testing.T) {
	mc := &mockClient{connectErr: fmt.Errorf("refused")}
	withMock(t, mc)
	_, err := NewPublisher(Config{Broker: "tcp://localhost:1883"})
	assert.ErrorContains(t, err, "refused")

	_, err = NewPublisher(Config{})
	assert.Error(t, err)
}

func TestClientOptions(t *testing.T) {
	opts, err := NewClientOptions(Config{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p", LWTTopic: "lwt", LWTPayload: "bye"})
	require.NoError(t, err)
	assert.Equal(t, "u", opts.Username)
	assert.Equal(t, "p", opts.Password)
	assert.True(t, opts.WillEnabled)
	assert.Equal(t, "lwt", opts.WillTopic)

	_, err = NewClientOptions(Config{Broker: "tcp://localhost:1883", UseTLS: true})
	assert.Error(t, err)
}

func TestCloseDisconnects(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	p, err := NewPublisher(Config{Broker: "tcp://localhost:1883"})
	require.NoError(t, err)
	require.NoError(t, p.Close())
	assert.Equal(t, 1, mc.disconnects)
}

func TestRegisteredAsSink(t *testing.T) {
	assert.Contains(t, coremetrics.SinkTypes(), "mqtt")
}
