package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuakim/valuefinder/internal/metrics"
	"github.com/joshuakim/valuefinder/internal/models"
	"github.com/joshuakim/valuefinder/internal/value"
)

func testClient() *Client {
	return &Client{
		send:  make(chan []byte, 4),
		weeks: make(map[int]bool),
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	default:
		t.Fatal("expected a message, send buffer empty")
		return Message{}
	}
}

func TestBroadcastByWeek(t *testing.T) {
	h := NewHub(metrics.New(), 10)

	week3 := testClient()
	everything := testClient()
	week5 := testClient()
	for _, c := range []*Client{week3, everything, week5} {
		h.registerClient(c)
	}
	h.Subscribe(week3, 3)
	h.Subscribe(everything, AllWeeks)
	h.Subscribe(week5, 5)

	rows := []models.OutputRow{{Week: 3, AwayTeam: "JAX", HomeTeam: "HOU", MarketSpread: 3.5}}
	h.Broadcast(3, rows)

	// Week subscribers and all-weeks subscribers both get the update
	msg := receive(t, week3)
	assert.Equal(t, MessageTypeGamesUpdate, msg.Type)
	assert.Equal(t, 3, msg.Week)
	require.Len(t, msg.Games, 1)
	assert.Equal(t, "JAX", msg.Games[0].AwayTeam)

	msg = receive(t, everything)
	assert.Equal(t, MessageTypeGamesUpdate, msg.Type)

	// Other weeks stay quiet
	assert.Empty(t, week5.send)
}

func TestBroadcastAlerts(t *testing.T) {
	h := NewHub(metrics.New(), 10)

	c := testClient()
	h.registerClient(c)
	h.Subscribe(c, AllWeeks)

	h.BroadcastAlerts(3, []value.Alert{{ID: "JAX_HOU-spread-AWAY", GameKey: "JAX_HOU", Week: 3}})

	msg := receive(t, c)
	assert.Equal(t, MessageTypeValueAlert, msg.Type)
	require.Len(t, msg.Alerts, 1)
	assert.Equal(t, "JAX_HOU-spread-AWAY", msg.Alerts[0].ID)

	// Empty alert batches are not broadcast
	h.BroadcastAlerts(3, nil)
	assert.Empty(t, c.send)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	h := NewHub(metrics.New(), 10)

	c := testClient()
	h.registerClient(c)
	h.Subscribe(c, 3)
	h.Unsubscribe(c, 3)

	h.Broadcast(3, []models.OutputRow{{Week: 3, AwayTeam: "JAX", HomeTeam: "HOU"}})
	assert.Empty(t, c.send)
}

func TestRegisterAtCapacity(t *testing.T) {
	h := NewHub(metrics.New(), 1)

	first := testClient()
	second := testClient()
	h.registerClient(first)
	h.registerClient(second)

	// The second client is rejected with an error message and a closed channel
	msg := receive(t, second)
	assert.Equal(t, MessageTypeError, msg.Type)
	assert.NotEmpty(t, msg.Error)
	_, open := <-second.send
	assert.False(t, open)

	assert.Equal(t, 1, h.ClientCount())
	assert.False(t, h.CanAccept())
}

func TestGetStats(t *testing.T) {
	h := NewHub(metrics.New(), 10)

	c := testClient()
	h.registerClient(c)
	h.Subscribe(c, 3)

	stats := h.GetStats()
	assert.Equal(t, 1, stats["total_clients"])
	assert.Equal(t, 10, stats["max_connections"])
	subs, ok := stats["subscriptions"].(map[string]int)
	require.True(t, ok)
	assert.Equal(t, 1, subs["3"])
}
