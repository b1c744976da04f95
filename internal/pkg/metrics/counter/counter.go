// Package counter keeps lightweight payment-flow counters in Redis hashes,
// keyed per provider. Writes are best-effort; losing a counter increment is
// acceptable, losing a payment is not, so nothing here is on a money path.
package counter

import (
	"context"
	"strconv"

	"github.com/CampusConnectNG/CampusConnect/internal/pkg/cache"
)

const (
	webhooksReceivedKey  = "payments:counters:webhooks_received"
	webhooksDuplicateKey = "payments:counters:webhooks_duplicate"
	reconcileOutcomeKey  = "payments:counters:reconcile:" // + outcome
)

// AddWebhookReceived increments the delivered-webhook counter for a provider.
func AddWebhookReceived(provider string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhooksReceivedKey, provider, 1).Err()
}

// AddWebhookDuplicate increments the suppressed-duplicate counter for a provider.
func AddWebhookDuplicate(provider string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhooksDuplicateKey, provider, 1).Err()
}

// AddReconcileOutcome counts one reconciliation result (credited,
// ticket_issued, failed, processing) for a provider.
func AddReconcileOutcome(provider, outcome string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, reconcileOutcomeKey+outcome, provider, 1).Err()
}

// Snapshot reads all counters for the ops endpoint.
func Snapshot() (map[string]map[string]int64, error) {
	ctx := context.Background()
	rdb := cache.GetClient()

	out := make(map[string]map[string]int64)
	keys := map[string]string{
		"webhooks_received":  webhooksReceivedKey,
		"webhooks_duplicate": webhooksDuplicateKey,
	}
	for _, outcome := range []string{"credited", "ticket_issued", "failed", "processing"} {
		keys["reconcile_"+outcome] = reconcileOutcomeKey + outcome
	}

	for name, key := range keys {
		fields, err := rdb.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		byProvider := make(map[string]int64, len(fields))
		for provider, raw := range fields {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				continue
			}
			byProvider[provider] = n
		}
		out[name] = byProvider
	}
	return out, nil
}
