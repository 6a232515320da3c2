// Package kvutil provides helpers for NATS JetStream KeyValue buckets.
package kvutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go/jetstream"
)

// DefaultRetries is used when EnsureBucket is called with maxRetries <= 0.
const DefaultRetries = 3

// EnsureBucket creates the KV bucket or opens it when another client created it first.
//
// Several controllers may start against the same NATS cluster at once, so creation races
// are expected. Failed attempts are retried with exponential backoff starting at 10ms.
// Context cancellation stops the retries immediately.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - js: JetStream context
//   - cfg: KV bucket configuration
//   - maxRetries: Retries after the first attempt (DefaultRetries when <= 0)
//
// Returns:
//   - jetstream.KeyValue: The KV bucket
//   - error: The last error once retries are exhausted
//
// Example:
//
//	kv, err := kvutil.EnsureBucket(ctx, js, jetstream.KeyValueConfig{
//	    Bucket:  "redis-ts-config",
//	    Storage: jetstream.FileStorage,
//	}, 3)
func EnsureBucket(
	ctx context.Context,
	js jetstream.JetStream,
	cfg jetstream.KeyValueConfig,
	maxRetries int,
) (jetstream.KeyValue, error) {
	if maxRetries <= 0 {
		maxRetries = DefaultRetries
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 10 * time.Millisecond
	expo.MaxInterval = time.Second
	expo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(maxRetries)), ctx) //nolint:gosec // maxRetries is positive

	var kv jetstream.KeyValue
	attempts := 0

	err := backoff.Retry(func() error {
		attempts++

		var err error
		kv, err = openOrCreate(ctx, js, cfg)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		return err
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("failed to create/open KV bucket %s after %d attempts: %w",
			cfg.Bucket, attempts, err)
	}

	return kv, nil
}

func openOrCreate(ctx context.Context, js jetstream.JetStream, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error) {
	kv, err := js.CreateKeyValue(ctx, cfg)
	if err == nil {
		return kv, nil
	}
	if !errors.Is(err, jetstream.ErrBucketExists) {
		return nil, err
	}

	// Created concurrently, possibly with a different config. Open what is there.
	kv, err = js.KeyValue(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("bucket exists but failed to open: %w", err)
	}

	return kv, nil
}
