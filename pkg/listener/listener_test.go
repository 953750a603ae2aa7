package listener

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/cuemby/meshrelay/pkg/metrics"
	"github.com/cuemby/meshrelay/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startListener(t *testing.T, store *memStore, sender Sender, rules ...types.ForwardingRule) (*Listener, context.CancelFunc, <-chan error) {
	t.Helper()

	p := newTestPipeline(t, store, sender, testTemplates, rules...)
	l := New(Config{Addr: "127.0.0.1:0", BufferSize: 512}, p)
	require.NoError(t, l.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- l.Run(ctx)
	}()
	t.Cleanup(cancel)
	return l, cancel, errCh
}

func sendDatagrams(t *testing.T, addr net.Addr, payloads ...string) {
	t.Helper()

	conn, err := net.Dial("udp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	for _, p := range payloads {
		_, err := conn.Write([]byte(p))
		require.NoError(t, err)
	}
}

func waitRun(t *testing.T, errCh <-chan error) {
	t.Helper()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestListenerProcessesInArrivalOrder(t *testing.T) {
	store := &memStore{}
	sender := &fakeSender{}
	l, cancel, errCh := startListener(t, store, sender, types.ForwardingRule{Type: "msg"})

	comp, ok := metrics.Component(metrics.ComponentListener)
	require.True(t, ok)
	assert.True(t, comp.Healthy)

	var payloads []string
	for i := 1; i <= 5; i++ {
		payloads = append(payloads, fmt.Sprintf(`{"type":"msg","src":"N%d","msg_id":"%d","msg":"m%d"}`, i, i, i))
	}
	sendDatagrams(t, l.LocalAddr(), payloads...)

	require.Eventually(t, func() bool {
		return len(store.all()) == len(payloads)
	}, 2*time.Second, 10*time.Millisecond)

	for i, rec := range store.all() {
		assert.Equal(t, fmt.Sprint(i+1), rec.MsgID)
		assert.Equal(t, payloads[i], rec.Raw)
		assert.False(t, rec.ReceivedAt.IsZero())
	}
	assert.Len(t, sender.messages(), len(payloads))

	cancel()
	waitRun(t, errCh)

	assert.Nil(t, l.LocalAddr())
	comp, _ = metrics.Component(metrics.ComponentListener)
	assert.False(t, comp.Healthy)
}

func TestListenerSurvivesBadPackets(t *testing.T) {
	store := &memStore{}
	l, cancel, errCh := startListener(t, store, nil)

	sendDatagrams(t, l.LocalAddr(),
		"Hello, World!",
		string([]byte{0xff, 0xfe}),
		`{"type":"msg","src":"OK","msg":"still here"}`,
	)

	require.Eventually(t, func() bool {
		return len(store.all()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "OK", store.all()[0].Source)

	cancel()
	waitRun(t, errCh)
}

func TestListenerCloseStopsRun(t *testing.T) {
	l, _, errCh := startListener(t, &memStore{}, nil)

	require.NoError(t, l.Close())
	waitRun(t, errCh)
	assert.NoError(t, l.Close(), "second close is a no-op")
}

func TestListenerBindFailure(t *testing.T) {
	first, _, _ := startListener(t, &memStore{}, nil)

	p := newTestPipeline(t, &memStore{}, nil, testTemplates)
	second := New(Config{Addr: first.LocalAddr().String()}, p)

	err := second.Listen()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to bind")

	err = second.Run(context.Background())
	assert.Error(t, err)
}

func TestListenTwice(t *testing.T) {
	p := newTestPipeline(t, &memStore{}, nil, testTemplates)
	l := New(Config{Addr: "127.0.0.1:0"}, p)

	require.NoError(t, l.Listen())
	defer l.Close()
	assert.Error(t, l.Listen())
	assert.Equal(t, DefaultBufferSize, l.bufferSize)
}
