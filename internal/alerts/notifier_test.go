package alerts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendSlack(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewNotifier(SMTPConfig{}, logrus.New())
	err := notifier.SendSlack(context.Background(), server.URL, []Notification{
		{ComponentCode: "CITRIC-ACID", ComponentName: "Citric Acid", ReorderStatus: "CRITICAL", QuantityOnHand: 40, ReorderPoint: 100},
		{ComponentCode: "BOTTLE-16OZ", ComponentName: "16oz Bottle", ReorderStatus: "WARNING", QuantityOnHand: 600, ReorderPoint: 500},
	})
	require.NoError(t, err)

	assert.Contains(t, received["text"], "CITRIC-ACID")
	assert.Contains(t, received["text"], "CRITICAL")
	assert.Contains(t, received["text"], "40 on hand, reorder point 100")
	assert.Contains(t, received["text"], "BOTTLE-16OZ")
}

func TestSendSlackNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := NewNotifier(SMTPConfig{}, logrus.New())
	err := notifier.SendSlack(context.Background(), server.URL, []Notification{
		{ComponentCode: "X", ComponentName: "X", ReorderStatus: "CRITICAL"},
	})
	assert.Error(t, err)
}

func TestSendSlackNoopWithoutWebhookOrFindings(t *testing.T) {
	notifier := NewNotifier(SMTPConfig{}, logrus.New())
	assert.NoError(t, notifier.SendSlack(context.Background(), "", []Notification{{ComponentCode: "X"}}))
	assert.NoError(t, notifier.SendSlack(context.Background(), "http://unreachable.invalid", nil))
}

func TestSendEmailRequiresSMTPHost(t *testing.T) {
	notifier := NewNotifier(SMTPConfig{}, logrus.New())
	err := notifier.SendEmail("ops@example.com", []Notification{{ComponentCode: "X"}})
	assert.Error(t, err)
}
