/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package cache holds the consent view cache and the revalidation hooks fired after
// consent mutations commit.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wso2/case-consent-api/internal/system/config"
)

// ViewCacheInterface caches rendered consent views and invalidates them on change.
type ViewCacheInterface interface {
	GetPersonView(ctx context.Context, personID int64) ([]byte, bool, error)
	SetPersonView(ctx context.Context, personID int64, view []byte) error
	RevalidatePerson(ctx context.Context, personID int64) error
	// GetQueuePage and SetQueuePage hold consent request queue pages. A page is only
	// returned while no queue revalidation has happened since it was stored.
	GetQueuePage(ctx context.Context, key string) ([]byte, bool, error)
	SetQueuePage(ctx context.Context, key string, page []byte) error
	RevalidateQueue(ctx context.Context) error
	Close() error
}

// NewViewCache returns a redis backed cache, or a no-op cache when caching is disabled.
func NewViewCache(ctx context.Context, cfg config.CacheConfig) (ViewCacheInterface, error) {
	if !cfg.Enabled {
		return noopCache{}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to cache: %w", err)
	}
	return NewRedisViewCache(client, cfg.Prefix, cfg.TTL), nil
}

type redisViewCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisViewCache wraps an existing redis client.
func NewRedisViewCache(client *redis.Client, prefix string, ttl time.Duration) ViewCacheInterface {
	if prefix == "" {
		prefix = "consent"
	}
	return &redisViewCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *redisViewCache) personKey(personID int64) string {
	return fmt.Sprintf("%s:person:%d:view", c.prefix, personID)
}

func (c *redisViewCache) queueKey() string {
	return c.prefix + ":queue:version"
}

func (c *redisViewCache) queuePageKey(version int64, key string) string {
	return fmt.Sprintf("%s:queue:%d:%s", c.prefix, version, key)
}

func (c *redisViewCache) GetPersonView(ctx context.Context, personID int64) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.personKey(personID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *redisViewCache) SetPersonView(ctx context.Context, personID int64, view []byte) error {
	return c.client.Set(ctx, c.personKey(personID), view, c.ttl).Err()
}

// RevalidatePerson drops the cached view so the next read reloads from the store.
func (c *redisViewCache) RevalidatePerson(ctx context.Context, personID int64) error {
	return c.client.Del(ctx, c.personKey(personID)).Err()
}

// GetQueuePage looks the page up under the current queue version.
func (c *redisViewCache) GetQueuePage(ctx context.Context, key string) ([]byte, bool, error) {
	version, err := c.queueVersion(ctx)
	if err != nil {
		return nil, false, err
	}
	data, err := c.client.Get(ctx, c.queuePageKey(version, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *redisViewCache) SetQueuePage(ctx context.Context, key string, page []byte) error {
	version, err := c.queueVersion(ctx)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.queuePageKey(version, key), page, c.ttl).Err()
}

// RevalidateQueue bumps the queue version, orphaning every stored page until its TTL runs out.
func (c *redisViewCache) RevalidateQueue(ctx context.Context) error {
	return c.client.Incr(ctx, c.queueKey()).Err()
}

func (c *redisViewCache) queueVersion(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, c.queueKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (c *redisViewCache) Close() error {
	return c.client.Close()
}

type noopCache struct{}

// NewNoopViewCache returns a cache that stores nothing.
func NewNoopViewCache() ViewCacheInterface { return noopCache{} }

func (noopCache) GetPersonView(context.Context, int64) ([]byte, bool, error) { return nil, false, nil }
func (noopCache) SetPersonView(context.Context, int64, []byte) error         { return nil }
func (noopCache) RevalidatePerson(context.Context, int64) error              { return nil }
func (noopCache) GetQueuePage(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (noopCache) SetQueuePage(context.Context, string, []byte) error         { return nil }
func (noopCache) RevalidateQueue(context.Context) error                      { return nil }
func (noopCache) Close() error                                               { return nil }
