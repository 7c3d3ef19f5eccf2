// Package notify pushes marketing package changes to the listing portal.
// Delivery runs outside the service transactions: the dispatcher tails the
// transition log past a cursor and retries failed deliveries on the next
// tick, so the portal sees every change at least once.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"dealflow/internal/config"
	"dealflow/internal/domain"
	"dealflow/internal/repo"
)

const (
	defaultInterval = 5 * time.Second
	defaultTimeout  = 5 * time.Second
	defaultBatch    = 100
)

type Dispatcher struct {
	Repo   repo.Repo
	Portal string
	URL    string
	Secret string
	Tick   time.Duration

	client *http.Client
	mu     sync.Mutex
	cursor int64
	primed bool
}

// Start launches a dispatcher from config, or returns nil when listing sync
// is disabled.
func Start(r repo.Repo, cfg *config.Config) *Dispatcher {
	if cfg == nil || !cfg.Listing.Enabled || strings.TrimSpace(cfg.Listing.URL) == "" {
		return nil
	}
	d := &Dispatcher{
		Repo:   r,
		Portal: cfg.Listing.Portal,
		URL:    cfg.Listing.URL,
		Secret: cfg.Listing.Secret,
		Tick:   defaultInterval,
	}
	if cfg.Listing.PollInterval > 0 {
		d.Tick = time.Duration(cfg.Listing.PollInterval) * time.Second
	}
	go d.run(context.Background())
	return d
}

func (d *Dispatcher) run(ctx context.Context) {
	ticker := time.NewTicker(d.Tick)
	defer ticker.Stop()
	for {
		d.DispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// DispatchOnce drains pending marketing package transitions. Delivery stops
// at the first failure so the cursor never skips a row.
func (d *Dispatcher) DispatchOnce(ctx context.Context) {
	cursor := d.initCursor(ctx)
	transitions, err := d.Repo.TransitionsAfter(ctx, defaultBatch, cursor, domain.KindMarketingPackage)
	if err != nil {
		log.Printf("listing-sync: fetch transitions failed: %v", err)
		return
	}
	for _, t := range transitions {
		if err := d.post(ctx, t); err != nil {
			log.Printf("listing-sync: deliver %d to %s failed: %v", t.ID, d.URL, err)
			return
		}
		d.setCursor(t.ID)
	}
}

// initCursor starts at the log tail so only changes made after startup sync.
func (d *Dispatcher) initCursor(ctx context.Context) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.primed {
		return d.cursor
	}
	cur, err := d.Repo.LatestTransitionID(ctx)
	if err != nil {
		log.Printf("listing-sync: init cursor failed: %v", err)
		cur = 0
	}
	d.cursor = cur
	d.primed = true
	return cur
}

func (d *Dispatcher) setCursor(v int64) {
	d.mu.Lock()
	d.cursor = v
	d.mu.Unlock()
}

type listingSyncPayload struct {
	ID         int64  `json:"id"`
	Portal     string `json:"portal"`
	PackageID  string `json:"package_id"`
	Transition string `json:"transition"`
	FromState  string `json:"from_state"`
	ToState    string `json:"to_state"`
	OccurredAt string `json:"occurred_at"`
}

func (d *Dispatcher) post(ctx context.Context, t domain.Transition) error {
	body := listingSyncPayload{
		ID:         t.ID,
		Portal:     d.Portal,
		PackageID:  t.EntityID,
		Transition: t.Transition,
		FromState:  t.FromState,
		ToState:    t.ToState,
		OccurredAt: t.OccurredAt,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	if d.client == nil {
		d.client = &http.Client{Timeout: defaultTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Dealflow-Delivery", fmt.Sprintf("%d", t.ID))
	if strings.TrimSpace(d.Secret) != "" {
		req.Header.Set("X-Dealflow-Secret", d.Secret)
	}
	res, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}
	return nil
}
