package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPNotifier entrega las allocations comprometidas a un ledger remoto vía
// POST JSON. Cualquier respuesta fuera de 2xx cuenta como fallo de
// propagación (y por lo tanto, fatal para la instancia que lo originó).
type HTTPNotifier struct {
	endpoint string
	http     *http.Client
}

// NewHTTPNotifier crea un notifier contra el endpoint dado.
func NewHTTPNotifier(endpoint string, timeout time.Duration) *HTTPNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPNotifier{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

type replacePayload struct {
	Updates []SeatAllocation `json:"updates"`
}

// ReplaceAllocations implements Notifier.
func (n *HTTPNotifier) ReplaceAllocations(ctx context.Context, updates []SeatAllocation) error {
	body, err := json.Marshal(replacePayload{Updates: updates})
	if err != nil {
		return fmt.Errorf("ledger notify: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ledger notify: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("ledger notify: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ledger notify: status %d: %s", resp.StatusCode, string(b))
	}
	return nil
}
