package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/staybooking/config"
	"github.com/redis/go-redis/v9"
)

// RedisCache adapts the shared redis instance to the coordination primitives
// the booking core needs. Only single-round-trip atomic operations are used;
// no distributed mutex is ever held across calls.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(cfg config.RedisConfig) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
	}
}

// AcquireSlotLock takes the set-if-absent lock for an exact date-range tuple.
// Returns false when another request already holds it. The lock is released
// only by its TTL.
func (c *RedisCache) AcquireSlotLock(ctx context.Context, propertyID, checkIn, checkOut string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, slotLockKey(propertyID, checkIn, checkOut), "locked", ttl).Result()
}

func (c *RedisCache) SetHold(ctx context.Context, bookingID, guestID string, ttl time.Duration) error {
	return c.client.Set(ctx, holdKey(bookingID), guestID, ttl).Err()
}

func (c *RedisCache) DeleteHold(ctx context.Context, bookingID string) error {
	return c.client.Del(ctx, holdKey(bookingID)).Err()
}

// ActiveHolds reports which of the given bookings still have a live hold.
func (c *RedisCache) ActiveHolds(ctx context.Context, bookingIDs []string) (map[string]bool, error) {
	if len(bookingIDs) == 0 {
		return map[string]bool{}, nil
	}
	keys := make([]string, 0, len(bookingIDs))
	for _, id := range bookingIDs {
		keys = append(keys, holdKey(id))
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	held := make(map[string]bool, len(bookingIDs))
	for i, v := range values {
		held[bookingIDs[i]] = v != nil
	}
	return held, nil
}

// incrWindowScript increments and, on the first increment only, arms the
// window expiry in the same atomic step. Splitting these into two commands
// would leave a counter without TTL if the process died in between.
var incrWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count`)

// IncrWindow increments a rolling-window counter. The expiry is set only on
// the first increment so the window does not slide on every request.
func (c *RedisCache) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	return incrWindowScript.Run(ctx, c.client, []string{rateKey(key)}, window.Milliseconds()).Int64()
}

func slotLockKey(propertyID, checkIn, checkOut string) string {
	return fmt.Sprintf("lock:property:%s:%s:%s", propertyID, checkIn, checkOut)
}

func holdKey(bookingID string) string {
	return fmt.Sprintf("hold:booking:%s", bookingID)
}

func rateKey(key string) string {
	return fmt.Sprintf("rate:guest:%s", key)
}
