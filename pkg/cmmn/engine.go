package cmmn

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/hashicorp/go-hclog"
	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/operaton/caseflow/pkg/cmmn/exporter"
	otelPkg "github.com/operaton/caseflow/pkg/otel"
	"github.com/operaton/caseflow/pkg/storage"
)

// Engine executes case models. Every externally initiated operation
// runs synchronously inside one command boundary: the engine loads the
// execution tree of the affected case instance, performs the transition
// with all its cascades, and flushes the resulting writes as one batch.
type Engine struct {
	name        string
	exporters   []exporter.EventExporter
	snowflake   *snowflake.Node
	persistence storage.Storage
	logger      hclog.Logger
	tracer      trace.Tracer
	metrics     *otelPkg.EngineMetrics
}

type EngineOption = func(*Engine)

// NewEngine creates a new instance of the CMMN Engine;
func NewEngine(options ...EngineOption) Engine {
	name := fmt.Sprintf("Cmmn-Engine-%d", getGlobalSnowflakeIdGenerator().Generate().Int64())
	engine := Engine{
		name:        name,
		snowflake:   getGlobalSnowflakeIdGenerator(),
		exporters:   []exporter.EventExporter{},
		persistence: nil,
		logger:      hclog.Default().Named("cmmn-engine"),
		tracer:      otelapi.GetTracerProvider().Tracer("cmmn-engine"),
	}

	metrics, err := otelPkg.NewMetrics(otelapi.GetMeterProvider().Meter("cmmn-engine"))
	if err != nil {
		engine.logger.Warn("failed to initialize engine metrics", "error", err)
	}
	engine.metrics = metrics

	for _, option := range options {
		option(&engine)
	}

	return engine
}

func EngineWithExporter(exporter exporter.EventExporter) EngineOption {
	return func(engine *Engine) { engine.AddEventExporter(exporter) }
}

func EngineWithStorage(persistence storage.Storage) EngineOption {
	return func(engine *Engine) {
		engine.persistence = persistence
	}
}

func EngineWithName(name string) EngineOption {
	return func(engine *Engine) {
		engine.name = name
	}
}

func EngineWithLogger(logger hclog.Logger) EngineOption {
	return func(engine *Engine) {
		engine.logger = logger
	}
}

func EngineWithTracer(tracer trace.Tracer) EngineOption {
	return func(engine *Engine) {
		engine.tracer = tracer
	}
}

func EngineWithMetrics(metrics *otelPkg.EngineMetrics) EngineOption {
	return func(engine *Engine) {
		engine.metrics = metrics
	}
}

// Name returns the name of the engine, only useful in case you control multiple ones
func (engine *Engine) Name() string {
	return engine.name
}

// meterContext is the context metric updates run under. Counter
// increments happen deep inside transition cascades where no request
// context is at hand.
func (engine *Engine) meterContext() context.Context {
	return context.Background()
}
