package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/analogist/internal/db"
)

// casScript sets KEYS[1] to ARGV[3] only when its current value matches.
// ARGV[1] is "1" when the key is expected to exist with value ARGV[2],
// "0" when it is expected to be absent.
var casScript = rueidis.NewLuaScript(`
local cur = redis.call('GET', KEYS[1])
if ARGV[1] == '0' then
  if cur then return 0 end
elseif cur ~= ARGV[2] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[3])
return 1
`)

// Get retrieves a value by key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.b().Get().Key(key).Build()
	data, err := s.do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// Set stores a value at the given key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	cmd := s.b().Set().Key(key).Value(string(value)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpSet, Err: err}
	}
	return nil
}

// CompareAndSwap replaces the value at key only if it still equals prev.
// The check and the write run server-side in one Lua script.
func (s *Store) CompareAndSwap(ctx context.Context, key string, prev, next []byte) (bool, error) {
	expect := "1"
	if prev == nil {
		expect = "0"
	}
	res, err := casScript.Exec(ctx, s.client, []string{key}, []string{expect, string(prev), string(next)}).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpCAS, Err: err}
	}
	return res == 1, nil
}
