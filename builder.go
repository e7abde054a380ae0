package storeauth

import (
	"errors"
	"time"

	"github.com/Arunava9732/Arunava45-sub000/cookie"
	"github.com/Arunava9732/Arunava45-sub000/janitor"
	"github.com/Arunava9732/Arunava45-sub000/jwt"
	"github.com/Arunava9732/Arunava45-sub000/password"
	"github.com/Arunava9732/Arunava45-sub000/session"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Builder assembles an Engine. It is single-use: a second Build fails.
type Builder struct {
	config Config

	sessionStore session.Store
	userProvider UserProvider
	auditSink    AuditSink
	logger       *zap.Logger
	clock        clockwork.Clock

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithSessionStore sets the durable session collection. Without one the
// Engine keeps sessions in process memory.
func (b *Builder) WithSessionStore(store session.Store) *Builder {
	b.sessionStore = store
	return b
}

func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	b.logger = log
	return b
}

// WithClock injects the time source used by the token codec, the session
// cache, the reconciler and the janitor.
func (b *Builder) WithClock(clock clockwork.Clock) *Builder {
	b.clock = clock
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every component. No I/O is
// performed; the janitor is not started until [Engine.StartJanitor].
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	clock := b.clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	log := b.logger
	if log == nil {
		log = zap.NewNop()
	}
	store := b.sessionStore
	if store == nil {
		log.Warn("no session store configured, sessions are kept in memory")
		store = session.NewMemoryStore()
	}

	// -------- TOKEN CODEC --------
	jm, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.Token.SigningMethod),
		PrivateKey:    cloneBytes(cfg.Token.Secret),
		PublicKey:     cloneBytes(cfg.Token.PublicKey),
		DefaultTTL:    cfg.tokenTTL(RoleCustomer),
		RoleTTL: map[string]time.Duration{
			RoleAdmin: cfg.tokenTTL(RoleAdmin),
		},
		Issuer: cfg.Token.Issuer,
		Leeway: cfg.Token.Leeway,
		Clock:  clock,
	})
	if err != nil {
		return nil, err
	}

	// -------- COOKIE --------
	cm, err := cookie.NewManager(cookie.Config{
		Name:       cfg.Cookie.Name,
		Secret:     cfg.Cookie.Secret,
		Domain:     cfg.Cookie.Domain,
		TrustProxy: cfg.Cookie.TrustProxy,
		Clock:      clock,
	})
	if err != nil {
		return nil, err
	}

	// -------- PASSWORD --------
	ph, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	dummy, err := ph.Hash("storefront-dummy-password")
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cloneConfig(cfg),
		clock:        clock,
		log:          log.Named("storeauth"),
		sessionStore: store,
		sessions: session.NewCache(store, session.CacheConfig{
			Capacity:        cfg.Cache.Capacity,
			TTL:             cfg.Cache.TTL,
			KeySuffixLength: cfg.Cache.KeySuffixLength,
		}, clock),
		userProvider: b.userProvider,
		jwtManager:   jm,
		cookies:      cm,
		passwordHash: ph,
		dummyHash:    dummy,
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:      NewMetrics(cfg.Metrics),
	}

	// -------- JANITOR --------
	if cfg.Janitor.Enabled {
		engine.janitor = janitor.New(store,
			janitor.WithClock(clock),
			janitor.WithInterval(cfg.Janitor.Interval),
			janitor.WithLogger(log),
			janitor.WithSweepHook(engine.onSwept),
		)
	}

	b.built = true

	return engine, nil
}
