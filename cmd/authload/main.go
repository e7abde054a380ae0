// Command authload seeds sessions into Redis (or an embedded miniredis) and
// drives concurrent Engine.Authenticate calls to report latency and cache
// effectiveness.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	storeauth "github.com/Arunava9732/Arunava45-sub000"
	"github.com/Arunava9732/Arunava45-sub000/internal"
	"github.com/Arunava9732/Arunava45-sub000/jwt"
	"github.com/Arunava9732/Arunava45-sub000/session"
	"github.com/Arunava9732/Arunava45-sub000/stores/redisstore"
)

var loadSecret = []byte("authload-secret-0123456789abcdef")

type seeded struct {
	token  string
	userID string
}

type noUsers struct{}

func (noUsers) GetUserByEmail(context.Context, string) (*storeauth.User, error) {
	return nil, storeauth.ErrUserNotFound
}

func (noUsers) GetUserByID(context.Context, string) (*storeauth.User, error) {
	return nil, storeauth.ErrUserNotFound
}

func main() {
	var (
		sessions    = flag.Int("sessions", 20000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 128, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "authenticate calls per phase")
		hot         = flag.Int("hot", 500, "size of the hot token set for the cached phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "authload", "session key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 || *hot <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, ops and hot must be > 0")
		os.Exit(2)
	}
	if *hot > *sessions {
		*hot = *sessions
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := redisstore.New(client, redisstore.Config{Prefix: *prefix})

	cfg := storeauth.DefaultConfig()
	cfg.Token.Secret = loadSecret
	cfg.Cookie.Secret = "authload-cookie"
	cfg.Janitor.Enabled = false

	engine, err := storeauth.New().
		WithConfig(cfg).
		WithSessionStore(store).
		WithUserProvider(noUsers{}).
		WithLogger(zap.NewNop()).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	states, err := seed(ctx, store, cfg, *sessions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	cached := runPhase(engine, states[:*hot], *ops, *concurrency)
	before := engine.CacheStats()
	spread := runPhase(engine, states, *ops, *concurrency)
	after := engine.CacheStats()

	fmt.Println("---- results ----")
	printStats("authenticate (hot set)", cached)
	printStats("authenticate (full set)", spread)
	hits := after.Hits - before.Hits
	misses := after.Misses - before.Misses
	if total := hits + misses; total > 0 {
		fmt.Printf("full set cache hit ratio: %.1f%% (evictions=%d)\n", 100*float64(hits)/float64(total), after.Evictions)
	}
}

func seed(ctx context.Context, store session.Store, cfg storeauth.Config, n int) ([]seeded, error) {
	jm, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    cfg.Token.Secret,
		DefaultTTL:    cfg.Session.Lifetime,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	out := make([]seeded, 0, n)
	for i := 0; i < n; i++ {
		userID := fmt.Sprintf("load-user-%d", i)
		token, _, err := jm.Issue(jwt.Subject{
			UserID: userID,
			Email:  fmt.Sprintf("shopper%d@load.test", i),
			Role:   storeauth.RoleCustomer,
		})
		if err != nil {
			return nil, err
		}
		id, err := internal.NewSessionIDString()
		if err != nil {
			return nil, err
		}
		if _, err := store.Create(ctx, session.Record{
			ID:             id,
			UserID:         userID,
			Token:          token,
			UserAgent:      "authload",
			CreatedAt:      now,
			LastActivityAt: now,
			ExpiresAt:      now.Add(cfg.Session.Lifetime),
		}); err != nil {
			return nil, err
		}
		out = append(out, seeded{token: token, userID: userID})
	}
	return out, nil
}

func runPhase(engine *storeauth.Engine, states []seeded, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			local := make([]time.Duration, 0, ops/concurrency+1)
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					break
				}
				st := states[r.Intn(len(states))]
				req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
				req.Header.Set("Authorization", "Bearer "+st.token)

				t0 := time.Now()
				res, err := engine.Authenticate(httptest.NewRecorder(), req)
				local = append(local, time.Since(t0))
				if err == nil && res.Identity.UserID != st.userID {
					err = errors.New("identity mismatch")
				}
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
