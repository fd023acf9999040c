// Package redis provides a Redis implementation of the genroute.Storage
// interface. The credit debit uses a Lua script so the affordability check
// and the decrement are atomic on the server.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cinexa/genroute/pkg/genroute"
)

// Storage implements genroute.Storage using Redis.
type Storage struct {
	client redis.UniversalClient
	config Config

	debitScript *redis.Script
}

// Config holds Redis storage configuration.
type Config struct {
	// KeyPrefix is prepended to all Redis keys (default: "genroute:").
	KeyPrefix string

	// MaxRecords caps the number of generation records before
	// CreateRecord returns ErrStorageCapacity. 0 means unbounded.
	MaxRecords int

	// LogTTL is the TTL applied to the usage log list (0 = no expiration).
	LogTTL time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		KeyPrefix: "genroute:",
	}
}

// New creates a new Redis storage adapter.
// The client can be *redis.Client, *redis.ClusterClient, or *redis.Ring.
func New(client redis.UniversalClient, config Config) (*Storage, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "genroute:"
	}

	return &Storage{
		client: client,
		config: config,
		// Check-and-decrement in one server-side step. Returns
		// {balance, 1} on success, {balance, 0} when unaffordable.
		debitScript: redis.NewScript(`
			local credits = redis.call('HGET', KEYS[1], 'credits')
			if not credits then
				return redis.error_reply('GENROUTE_USER_NOT_FOUND')
			end
			credits = tonumber(credits)
			local cost = tonumber(ARGV[1])
			if credits < cost then
				return {credits, 0}
			end
			local newBalance = redis.call('HINCRBY', KEYS[1], 'credits', -cost)
			return {newBalance, 1}
		`),
	}, nil
}

func (s *Storage) userKey(id string) string   { return s.config.KeyPrefix + "user:" + id }
func (s *Storage) usersKey() string           { return s.config.KeyPrefix + "users" }
func (s *Storage) logsKey() string            { return s.config.KeyPrefix + "logs" }
func (s *Storage) usageKey() string           { return s.config.KeyPrefix + "usage" }
func (s *Storage) recordKey(id string) string { return s.config.KeyPrefix + "record:" + id }
func (s *Storage) recordsKey() string         { return s.config.KeyPrefix + "records" }
func (s *Storage) userRecordsKey(userID string) string {
	return s.config.KeyPrefix + "records:user:" + userID
}

// GetUser implements genroute.Storage.
func (s *Storage) GetUser(ctx context.Context, id string) (*genroute.User, error) {
	fields, err := s.client.HGetAll(ctx, s.userKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if len(fields) == 0 {
		return nil, genroute.ErrUserNotFound
	}
	return userFromFields(id, fields), nil
}

// PutUser implements genroute.Storage.
func (s *Storage) PutUser(ctx context.Context, u *genroute.User) error {
	if u == nil || u.ID == "" {
		return fmt.Errorf("invalid user")
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.userKey(u.ID), map[string]interface{}{
		"email":     u.Email,
		"name":      u.Name,
		"plan":      string(u.Plan),
		"credits":   u.Credits,
		"is_admin":  strconv.FormatBool(u.IsAdmin),
		"is_active": strconv.FormatBool(u.IsActive),
		"avatar":    u.AvatarURL,
	})
	pipe.SAdd(ctx, s.usersKey(), u.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to put user: %w", err)
	}
	return nil
}

// ListUsers implements genroute.Storage.
func (s *Storage) ListUsers(ctx context.Context) ([]*genroute.User, error) {
	ids, err := s.client.SMembers(ctx, s.usersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	out := make([]*genroute.User, 0, len(ids))
	for _, id := range ids {
		u, err := s.GetUser(ctx, id)
		if err == genroute.ErrUserNotFound {
			continue // set member without a hash, skip
		}
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// SetCredits implements genroute.Storage.
func (s *Storage) SetCredits(ctx context.Context, id string, credits int) error {
	exists, err := s.client.Exists(ctx, s.userKey(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to check user: %w", err)
	}
	if exists == 0 {
		return genroute.ErrUserNotFound
	}
	if err := s.client.HSet(ctx, s.userKey(id), "credits", credits).Err(); err != nil {
		return fmt.Errorf("failed to set credits: %w", err)
	}
	return nil
}

// DebitCredits implements genroute.Storage via the server-side Lua script.
func (s *Storage) DebitCredits(ctx context.Context, id string, cost int) (int, error) {
	if cost < 0 {
		return 0, fmt.Errorf("negative cost")
	}

	res, err := s.debitScript.Run(ctx, s.client, []string{s.userKey(id)}, cost).Result()
	if err != nil {
		if strings.Contains(err.Error(), "GENROUTE_USER_NOT_FOUND") {
			return 0, genroute.ErrUserNotFound
		}
		return 0, fmt.Errorf("debit script failed: %w", err)
	}

	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return 0, fmt.Errorf("unexpected debit script result: %v", res)
	}
	balance := int(vals[0].(int64))
	if vals[1].(int64) == 0 {
		return balance, genroute.ErrInsufficientCredits
	}
	return balance, nil
}

// AppendLog implements genroute.Storage.
func (s *Storage) AppendLog(ctx context.Context, entry *genroute.LogEntry) error {
	if entry == nil {
		return fmt.Errorf("nil log entry")
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.logsKey(), data)
	pipe.HIncrBy(ctx, s.usageKey(), entry.Provider, 1)
	if s.config.LogTTL > 0 {
		pipe.Expire(ctx, s.logsKey(), s.config.LogTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append log: %w", err)
	}
	return nil
}

// ListLogs implements genroute.Storage.
func (s *Storage) ListLogs(ctx context.Context, limit int) ([]*genroute.LogEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	raw, err := s.client.LRange(ctx, s.logsKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}

	out := make([]*genroute.LogEntry, 0, len(raw))
	for _, item := range raw {
		var e genroute.LogEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			continue // tolerate a corrupt line rather than failing the listing
		}
		out = append(out, &e)
	}
	return out, nil
}

// ProviderUsage implements genroute.Storage.
func (s *Storage) ProviderUsage(ctx context.Context) (map[string]int, error) {
	fields, err := s.client.HGetAll(ctx, s.usageKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get provider usage: %w", err)
	}

	usage := make(map[string]int, len(fields))
	for provider, count := range fields {
		n, err := strconv.Atoi(count)
		if err != nil {
			continue
		}
		usage[provider] = n
	}
	return usage, nil
}

// CreateRecord implements genroute.Storage.
func (s *Storage) CreateRecord(ctx context.Context, rec *genroute.GenerationRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("invalid record")
	}

	if s.config.MaxRecords > 0 {
		count, err := s.client.ZCard(ctx, s.recordsKey()).Result()
		if err != nil {
			return fmt.Errorf("failed to count records: %w", err)
		}
		if count >= int64(s.config.MaxRecords) {
			return genroute.ErrStorageCapacity
		}
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	score := float64(rec.CreatedAt.UnixNano())
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.recordKey(rec.ID), data, 0)
	pipe.ZAdd(ctx, s.recordsKey(), redis.Z{Score: score, Member: rec.ID})
	pipe.ZAdd(ctx, s.userRecordsKey(rec.UserID), redis.Z{Score: score, Member: rec.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create record: %w", err)
	}
	return nil
}

// ListRecordsByUser implements genroute.Storage.
func (s *Storage) ListRecordsByUser(ctx context.Context, userID string, since time.Time) ([]*genroute.GenerationRecord, error) {
	ids, err := s.client.ZRevRangeByScore(ctx, s.userRecordsKey(userID), &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixNano(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list user records: %w", err)
	}
	return s.fetchRecords(ctx, ids)
}

// ListAllRecords implements genroute.Storage.
func (s *Storage) ListAllRecords(ctx context.Context) ([]*genroute.GenerationRecord, error) {
	ids, err := s.client.ZRevRange(ctx, s.recordsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return s.fetchRecords(ctx, ids)
}

func (s *Storage) fetchRecords(ctx context.Context, ids []string) ([]*genroute.GenerationRecord, error) {
	out := make([]*genroute.GenerationRecord, 0, len(ids))
	for _, id := range ids {
		raw, err := s.client.Get(ctx, s.recordKey(id)).Result()
		if err == redis.Nil {
			continue // index entry without a body, skip
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get record %s: %w", id, err)
		}
		var rec genroute.GenerationRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		out = append(out, &rec)
	}
	return out, nil
}

// EvictOldestRecords implements genroute.Storage.
func (s *Storage) EvictOldestRecords(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}

	ids, err := s.client.ZRange(ctx, s.recordsKey(), 0, int64(n)-1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to find oldest records: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	evicted := 0
	for _, id := range ids {
		raw, err := s.client.Get(ctx, s.recordKey(id)).Result()
		var userID string
		if err == nil {
			var rec genroute.GenerationRecord
			if jsonErr := json.Unmarshal([]byte(raw), &rec); jsonErr == nil {
				userID = rec.UserID
			}
		}

		pipe := s.client.TxPipeline()
		pipe.ZRem(ctx, s.recordsKey(), id)
		if userID != "" {
			pipe.ZRem(ctx, s.userRecordsKey(userID), id)
		}
		pipe.Del(ctx, s.recordKey(id))
		if _, err := pipe.Exec(ctx); err != nil {
			return evicted, fmt.Errorf("failed to evict record %s: %w", id, err)
		}
		evicted++
	}
	return evicted, nil
}

func userFromFields(id string, fields map[string]string) *genroute.User {
	credits, _ := strconv.Atoi(fields["credits"])
	isAdmin, _ := strconv.ParseBool(fields["is_admin"])
	isActive, _ := strconv.ParseBool(fields["is_active"])
	return &genroute.User{
		ID:        id,
		Email:     fields["email"],
		Name:      fields["name"],
		Plan:      genroute.PlanType(fields["plan"]),
		Credits:   credits,
		IsAdmin:   isAdmin,
		IsActive:  isActive,
		AvatarURL: fields["avatar"],
	}
}
