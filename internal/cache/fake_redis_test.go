package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// fakeRedis answers the handful of commands HistoryCache issues from memory.
// It is installed as a go-redis hook that never calls the next hook, so no
// connection is ever dialed.
type fakeRedis struct {
	mu       sync.Mutex
	now      time.Time
	strings  map[string]string
	hashes   map[string]map[string]string
	expireAt map[string]time.Time
}

func newFakeRedisClient() (*redisv9.Client, *fakeRedis) {
	f := &fakeRedis{
		now:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		strings:  map[string]string{},
		hashes:   map[string]map[string]string{},
		expireAt: map[string]time.Time{},
	}
	client := redisv9.NewClient(&redisv9.Options{Addr: "fake:6379"})
	client.AddHook(f)
	return client, f
}

func (f *fakeRedis) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fakeRedis) DialHook(next redisv9.DialHook) redisv9.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, fmt.Errorf("fake redis does not dial %s", addr)
	}
}

func (f *fakeRedis) ProcessHook(next redisv9.ProcessHook) redisv9.ProcessHook {
	return func(ctx context.Context, cmd redisv9.Cmder) error {
		return f.apply(cmd)
	}
}

func (f *fakeRedis) ProcessPipelineHook(next redisv9.ProcessPipelineHook) redisv9.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redisv9.Cmder) error {
		for _, cmd := range cmds {
			switch cmd.Name() {
			case "multi", "exec":
				continue
			}
			if err := f.apply(cmd); err != nil {
				cmd.SetErr(err)
			}
		}
		return nil
	}
}

func (f *fakeRedis) apply(cmd redisv9.Cmder) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	args := make([]string, len(cmd.Args()))
	for i, a := range cmd.Args() {
		if b, ok := a.([]byte); ok {
			args[i] = string(b)
		} else {
			args[i] = fmt.Sprint(a)
		}
	}
	f.evictExpired()

	switch strings.ToLower(args[0]) {
	case "hget":
		v, ok := f.hashes[args[1]][args[2]]
		if !ok {
			cmd.SetErr(redisv9.Nil)
			return redisv9.Nil
		}
		cmd.(*redisv9.StringCmd).SetVal(v)
	case "hset":
		h := f.hashes[args[1]]
		if h == nil {
			h = map[string]string{}
			f.hashes[args[1]] = h
		}
		for i := 2; i+1 < len(args); i += 2 {
			h[args[i]] = args[i+1]
		}
		cmd.(*redisv9.IntCmd).SetVal(int64((len(args) - 2) / 2))
	case "expire":
		secs, _ := strconv.Atoi(args[2])
		f.expireAt[args[1]] = f.now.Add(time.Duration(secs) * time.Second)
		cmd.(*redisv9.BoolCmd).SetVal(true)
	case "set":
		f.strings[args[1]] = args[2]
		delete(f.expireAt, args[1])
		if len(args) >= 5 {
			n, _ := strconv.Atoi(args[4])
			unit := time.Second
			if strings.EqualFold(args[3], "px") {
				unit = time.Millisecond
			}
			f.expireAt[args[1]] = f.now.Add(time.Duration(n) * unit)
		}
		cmd.(*redisv9.StatusCmd).SetVal("OK")
	case "del":
		var n int64
		for _, k := range args[1:] {
			if f.exists(k) {
				n++
			}
			delete(f.strings, k)
			delete(f.hashes, k)
			delete(f.expireAt, k)
		}
		cmd.(*redisv9.IntCmd).SetVal(n)
	case "exists":
		var n int64
		for _, k := range args[1:] {
			if f.exists(k) {
				n++
			}
		}
		cmd.(*redisv9.IntCmd).SetVal(n)
	default:
		err := fmt.Errorf("fake redis: unsupported command %q", args[0])
		cmd.SetErr(err)
		return err
	}
	return nil
}

func (f *fakeRedis) exists(key string) bool {
	if _, ok := f.strings[key]; ok {
		return true
	}
	_, ok := f.hashes[key]
	return ok
}

func (f *fakeRedis) evictExpired() {
	for k, at := range f.expireAt {
		if !f.now.Before(at) {
			delete(f.strings, k)
			delete(f.hashes, k)
			delete(f.expireAt, k)
		}
	}
}

func (f *fakeRedis) ttl(key string) time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.expireAt[key]
	if !ok {
		return 0
	}
	return at.Sub(f.now)
}

func (f *fakeRedis) hashFields(key string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var fields []string
	for field := range f.hashes[key] {
		fields = append(fields, field)
	}
	return fields
}
