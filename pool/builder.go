package pool

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/world-in-progress/surfpool/caller"
	"github.com/world-in-progress/surfpool/core/logger"
	"github.com/world-in-progress/surfpool/core/threading"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/world-in-progress/surfpool/pool"

// Builder configures and creates a Pool.
type Builder struct {
	name        string
	size        int
	healthCheck *caller.Request
	preConnect  bool
	timeout     time.Duration
	keepalive   time.Duration
	recorder    Recorder
	metrics     Metrics
	transport   func() *http.Transport
	tracer      trace.TracerProvider
}

// NewBuilder creates a builder for a pool of size clients.
// The size cannot be 0 or bigger than MaxPoolSize.
func NewBuilder(size int) (*Builder, error) {
	if size <= 0 || size > MaxPoolSize {
		return nil, &SizeNotValidError{Size: size}
	}
	return &Builder{
		size: size,
	}, nil
}

// HealthCheck sets the request used to check the connection health status,
// as keepalive and as pre-connect request.
func (b *Builder) HealthCheck(req *caller.Request) *Builder {
	b.healthCheck = req
	return b
}

// PreConnect makes Build establish every connection up front using the health check.
// Without a health check it is ignored.
func (b *Builder) PreConnect(preConnect bool) *Builder {
	b.preConnect = preConnect
	return b
}

// Timeout bounds every request sent by the pool's clients. Zero means no limit.
func (b *Builder) Timeout(d time.Duration) *Builder {
	b.timeout = d
	return b
}

// KeepaliveInterval enables periodic health checks of idle clients.
func (b *Builder) KeepaliveInterval(d time.Duration) *Builder {
	b.keepalive = d
	return b
}

func (b *Builder) Recorder(r Recorder) *Builder {
	b.recorder = r
	return b
}

func (b *Builder) Metrics(m Metrics) *Builder {
	b.metrics = m
	return b
}

// Transport sets the factory used for each client's transport.
// Every client gets its own transport, so connections are never shared between slots.
func (b *Builder) Transport(fn func() *http.Transport) *Builder {
	b.transport = fn
	return b
}

func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

func (b *Builder) TracerProvider(tp trace.TracerProvider) *Builder {
	b.tracer = tp
	return b
}

// Build creates the Pool. If a health check is set and pre-connect is enabled,
// the connections are established here. Failed pre-connections are logged
// and recorded but never fail the build.
func (b *Builder) Build(ctx context.Context) *Pool {
	p := newPool(b)

	if b.healthCheck != nil && b.preConnect {
		group := threading.NewRoutineGroup()
		for _, s := range p.slots {
			group.RunSafeCtx(ctx, func(ctx context.Context) {
				p.probe(ctx, s)
			})
		}
		group.Wait()
		if err := p.flush(ctx); err != nil {
			logger.Error("pool %s: failed to record probes: %v", p.name, err)
		}
		logger.WithFields(logger.Fields{"pool": p.name, "size": len(p.slots)}).Info("pool pre-connected")
	} else if b.preConnect {
		logger.Warn("pool %s: pre-connect requested without a health check, ignoring", p.name)
	}

	if b.healthCheck != nil && b.keepalive > 0 {
		p.startKeepalive(b.keepalive)
	}
	return p
}

func (b *Builder) resolve() {
	if b.name == "" {
		b.name = uuid.New().String()
	}
	if b.metrics == nil {
		b.metrics = noopMetrics{}
	}
	if b.transport == nil {
		b.transport = defaultTransport
	}
	if b.tracer == nil {
		b.tracer = otel.GetTracerProvider()
	}
}

func defaultTransport() *http.Transport {
	return http.DefaultTransport.(*http.Transport).Clone()
}
