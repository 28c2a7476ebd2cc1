package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces keys written by the Redis store.
const DefaultRedisPrefix = "mermaidflow:"

// Redis is a Store backed by Redis.
//
// Diagrams are JSON strings under {prefix}diagram:{id}, indexed by creation
// time in the sorted set {prefix}diagrams. Versions are JSON strings pushed
// onto the list {prefix}versions:{id}, newest at the head.
type Redis struct {
	client *backend.Client
	prefix string
	opts   options
}

// OpenRedis connects to the Redis server at addr and checks it responds.
func OpenRedis(ctx context.Context, addr, password string, db int, prefix string, opts ...Option) (*Redis, error) {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return NewRedisFromClient(client, prefix, opts...), nil
}

// NewRedisFromClient creates a store from an existing client.
func NewRedisFromClient(client *backend.Client, prefix string, opts ...Option) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{
		client: client,
		prefix: prefix,
		opts:   defaultOptions(opts),
	}
}

func (s *Redis) diagramKey(id string) string {
	return s.prefix + "diagram:" + id
}

func (s *Redis) indexKey() string {
	return s.prefix + "diagrams"
}

func (s *Redis) versionsKey(id string) string {
	return s.prefix + "versions:" + id
}

// ListDiagrams implements Store.
func (s *Redis) ListDiagrams(ctx context.Context, userID string) ([]Diagram, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading diagram index: %w", err)
	}

	result := []Diagram{}
	if len(ids) == 0 {
		return result, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.diagramKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading diagrams: %w", err)
	}

	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a document; skip it.
			continue
		}
		var d Diagram
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, fmt.Errorf("decoding diagram: %w", err)
		}
		if visible(d, userID) {
			result = append(result, d)
		}
	}
	return result, nil
}

// GetDiagram implements Store.
func (s *Redis) GetDiagram(ctx context.Context, id string) (*Diagram, error) {
	raw, err := s.client.Get(ctx, s.diagramKey(id)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting diagram: %w", err)
	}

	var d Diagram
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decoding diagram: %w", err)
	}
	return &d, nil
}

// CreateDiagram implements Store.
func (s *Redis) CreateDiagram(ctx context.Context, d *Diagram) (*Diagram, error) {
	out, err := s.opts.prepareDiagram(d)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encoding diagram: %w", err)
	}

	created, err := s.client.SetNX(ctx, s.diagramKey(out.ID), data, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("saving diagram: %w", err)
	}
	if !created {
		return nil, fmt.Errorf("%w: id %q already exists", ErrInvalid, out.ID)
	}

	err = s.client.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(out.CreatedAt.UnixMicro()),
		Member: out.ID,
	}).Err()
	if err != nil {
		return nil, fmt.Errorf("indexing diagram: %w", err)
	}
	return &out, nil
}

// UpdateDiagram implements Store.
func (s *Redis) UpdateDiagram(ctx context.Context, id string, p Patch) (*Diagram, error) {
	key := s.diagramKey(id)
	var updated Diagram

	err := s.client.Watch(ctx, func(tx *backend.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, backend.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("getting diagram: %w", err)
		}

		var current Diagram
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("decoding diagram: %w", err)
		}
		if updated, err = p.apply(current, s.opts.now()); err != nil {
			return err
		}
		data, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("encoding diagram: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteDiagram implements Store.
func (s *Redis) DeleteDiagram(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.diagramKey(id))
	pipe.Del(ctx, s.versionsKey(id))
	pipe.ZRem(ctx, s.indexKey(), id)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deleting diagram: %w", err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateVersion implements Store.
func (s *Redis) CreateVersion(ctx context.Context, v *Version) (*Version, error) {
	out, err := s.opts.prepareVersion(v)
	if err != nil {
		return nil, err
	}

	exists, err := s.client.Exists(ctx, s.diagramKey(out.DiagramID)).Result()
	if err != nil {
		return nil, fmt.Errorf("checking diagram: %w", err)
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encoding version: %w", err)
	}
	if err := s.client.LPush(ctx, s.versionsKey(out.DiagramID), data).Err(); err != nil {
		return nil, fmt.Errorf("saving version: %w", err)
	}
	return &out, nil
}

// ListVersions implements Store.
func (s *Redis) ListVersions(ctx context.Context, diagramID string) ([]Version, error) {
	exists, err := s.client.Exists(ctx, s.diagramKey(diagramID)).Result()
	if err != nil {
		return nil, fmt.Errorf("checking diagram: %w", err)
	}
	if exists == 0 {
		return nil, ErrNotFound
	}

	raws, err := s.client.LRange(ctx, s.versionsKey(diagramID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}

	result := make([]Version, 0, len(raws))
	for _, raw := range raws {
		var v Version
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decoding version: %w", err)
		}
		result = append(result, v)
	}
	return result, nil
}

// Close implements Store.
func (s *Redis) Close() error {
	return s.client.Close()
}
