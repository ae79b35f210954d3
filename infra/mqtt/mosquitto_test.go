package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	coremetrics "github.com/kilianp07/chargesim/core/metrics"
)

func startMosquitto(ctx context.Context, t *testing.T) string {
	t.Helper()
	conf := "listener 1883\nallow_anonymous true\npersistence false\n"
	path := filepath.Join(t.TempDir(), "mosquitto.conf")
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o644))

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			HostFilePath:      path,
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0o644,
		}},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("container start: %v", err)
	}
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })
	host, err := cont.Host(ctx)
	require.NoError(t, err)
	port, err := cont.MappedPort(ctx, "1883")
	require.NoError(t, err)
	return fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

func TestPublisherWithMosquitto(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx := context.Background()
	broker := startMosquitto(ctx, t)

	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("report-reader"))
	if token := sub.Connect(); token.Wait() && token.Error() != nil {
		t.Skipf("broker not ready: %v", token.Error())
	}
	defer sub.Disconnect(100)
	got := make(chan []byte, 1)
	token := sub.Subscribe("it/runs/#", 1, func(_ paho.Client, m paho.Message) { got <- m.Payload() })
	require.True(t, token.WaitTimeout(5*time.Second))
	require.NoError(t, token.Error())

	pub, err := NewPublisher(Config{Broker: broker, TopicPrefix: "it", QoS: 1})
	require.NoError(t, err)
	defer pub.Close()
	require.NoError(t, pub.RecordRun(sampleRun(coremetrics.ContextRun)))

	select {
	case payload := <-got:
		var rep RunReport
		require.NoError(t, json.Unmarshal(payload, &rep))
		assert.Equal(t, "r1", rep.RunID)
	case <-time.After(10 * time.Second):
		t.Fatal("report not received")
	}
}
