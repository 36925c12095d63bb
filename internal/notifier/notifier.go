package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Notifier delivers a single customer message. Implementations are
// fire-and-forget from the core's point of view: the dispatcher records the
// outcome but no core operation ever waits on it.
type Notifier interface {
	Notify(phone, message string) error
}

// HTTPGatewayNotifier posts messages to an external SMS/WhatsApp gateway.
type HTTPGatewayNotifier struct {
	url    string
	client *http.Client
}

// NewHTTPGatewayNotifier creates a notifier that posts to the given gateway URL.
func NewHTTPGatewayNotifier(url string) *HTTPGatewayNotifier {
	return &HTTPGatewayNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *HTTPGatewayNotifier) Notify(phone, message string) error {
	payload, err := json.Marshal(map[string]string{"phone": phone, "message": message})
	if err != nil {
		return fmt.Errorf("failed to encode notification payload: %w", err)
	}
	resp, err := n.client.Post(n.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to reach notification gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// LogNotifier writes messages to the application log instead of delivering
// them. Used when no gateway is configured.
type LogNotifier struct{}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Notify(phone, message string) error {
	log.Info().Str("phone", phone).Str("message", message).Msg("Notification (log only)")
	return nil
}
