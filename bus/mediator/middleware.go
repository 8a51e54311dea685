package mediator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/x-research-team/dtx-mediator/bus/request"
)

const (
	instrumentationName    = "github.com/x-research-team/dtx-mediator/bus/mediator"
	instrumentationVersion = "0.1.0"
	metricKeyPrefix        = "mediator."
)

// Operation - вызываемая операция обработчика.
type Operation int

const (
	// OperationExecute - выполнение команды или запроса.
	OperationExecute Operation = iota
	// OperationUndo - отмена команды.
	OperationUndo
	// OperationRedo - повтор команды.
	OperationRedo
)

// String возвращает текстовое представление операции.
func (o Operation) String() string {
	switch o {
	case OperationUndo:
		return "undo"
	case OperationRedo:
		return "redo"
	default:
		return "execute"
	}
}

// Invocation описывает один вызов обработчика.
type Invocation struct {
	Operation Operation
	Kind      Kind
	Key       request.Key
	Request   any
}

// Call - вызов обработчика, обернутый цепочкой middleware.
type Call func(ctx context.Context) (request.Status, error)

// Invoker вызывает обработчик. Middleware оборачивают Invoker, добавляя
// сквозную функциональность.
type Invoker interface {
	Invoke(ctx context.Context, inv Invocation, call Call) (request.Status, error)
}

// InvokerFunc - адаптер функции к Invoker.
type InvokerFunc func(ctx context.Context, inv Invocation, call Call) (request.Status, error)

// Invoke вызывает f.
func (f InvokerFunc) Invoke(ctx context.Context, inv Invocation, call Call) (request.Status, error) {
	return f(ctx, inv, call)
}

// Metadatable определяет интерфейс запросов, которые несут метаданные
// для распространения контекста трассировки.
type Metadatable interface {
	Metadata() map[string]string
}

// Middleware определяет интерфейс для middleware медиатора.
type Middleware interface {
	Wrap(next Invoker) Invoker
}

// MiddlewareFunc является адаптером, позволяющим использовать обычные функции как middleware.
type MiddlewareFunc func(next Invoker) Invoker

// Wrap реализует интерфейс Middleware.
func (f MiddlewareFunc) Wrap(next Invoker) Invoker {
	return f(next)
}

// directInvoker просто вызывает обработчик.
var directInvoker = InvokerFunc(func(ctx context.Context, _ Invocation, call Call) (request.Status, error) {
	return call(ctx)
})

// NewLoggingMiddleware создает новое middleware для логирования.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		return noopMiddleware{}
	}
	return MiddlewareFunc(func(next Invoker) Invoker {
		return InvokerFunc(func(ctx context.Context, inv Invocation, call Call) (status request.Status, err error) {
			attrs := []any{
				slog.String("request_type", inv.Key.RequestName()),
				slog.String("kind", inv.Kind.String()),
				slog.String("operation", inv.Operation.String()),
			}
			logger.Debug("вызов обработчика", attrs...)

			startTime := time.Now()
			defer func() {
				attrs = append(attrs,
					slog.String("status", status.String()),
					slog.Duration("duration", time.Since(startTime)),
				)
				if err != nil {
					logger.Error("ошибка обработчика", append(attrs, slog.Any("error", err))...)
					return
				}
				logger.Info("обработчик выполнен", attrs...)
			}()

			return next.Invoke(ctx, inv, call)
		})
	})
}

// metricsMiddleware собирает метрики OpenTelemetry.
type metricsMiddleware struct {
	invokeCounter       metric.Int64Counter
	processDurationHist metric.Float64Histogram
}

// NewMetricsMiddleware создает новое middleware для сбора метрик.
func NewMetricsMiddleware(provider metric.MeterProvider) Middleware {
	if provider == nil {
		return noopMiddleware{}
	}

	meter := provider.Meter(instrumentationName, metric.WithInstrumentationVersion(instrumentationVersion))

	invokeCounter, err := meter.Int64Counter(
		metricKeyPrefix+"invoke.count",
		metric.WithDescription("Количество вызовов обработчиков"),
		metric.WithUnit("{invocations}"),
	)
	if err != nil {
		panic(fmt.Sprintf("не удалось создать счетчик invoke.count: %v", err))
	}

	processDurationHist, err := meter.Float64Histogram(
		metricKeyPrefix+"process.duration",
		metric.WithDescription("Длительность вызова обработчика"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic(fmt.Sprintf("не удалось создать гистограмму process.duration: %v", err))
	}

	return &metricsMiddleware{
		invokeCounter:       invokeCounter,
		processDurationHist: processDurationHist,
	}
}

// Wrap оборачивает Invoker для добавления сбора метрик.
func (m *metricsMiddleware) Wrap(next Invoker) Invoker {
	return InvokerFunc(func(ctx context.Context, inv Invocation, call Call) (request.Status, error) {
		startTime := time.Now()
		status, err := next.Invoke(ctx, inv, call)
		duration := float64(time.Since(startTime).Microseconds()) / 1000

		outcome := status.String()
		if err != nil {
			outcome = "error"
		}
		attrs := metric.WithAttributes(
			attribute.String("request.type", inv.Key.RequestName()),
			attribute.String("request.kind", inv.Kind.String()),
			attribute.String("operation", inv.Operation.String()),
			attribute.String("status", outcome),
		)

		m.invokeCounter.Add(ctx, 1, attrs)
		m.processDurationHist.Record(ctx, duration, attrs)

		return status, err
	})
}

// tracingMiddleware создает спаны OpenTelemetry для вызовов обработчиков.
type tracingMiddleware struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewTracingMiddleware создает новое middleware для трассировки.
func NewTracingMiddleware(tp trace.TracerProvider, p propagation.TextMapPropagator) Middleware {
	if tp == nil {
		return noopMiddleware{}
	}

	if p == nil {
		p = propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	}

	return &tracingMiddleware{
		tracer: tp.Tracer(
			instrumentationName,
			trace.WithInstrumentationVersion(instrumentationVersion),
		),
		propagator: p,
	}
}

// Wrap оборачивает Invoker для добавления логики трассировки.
func (m *tracingMiddleware) Wrap(next Invoker) Invoker {
	return InvokerFunc(func(ctx context.Context, inv Invocation, call Call) (status request.Status, err error) {
		if md, ok := inv.Request.(Metadatable); ok && md.Metadata() != nil {
			ctx = m.propagator.Extract(ctx, propagation.MapCarrier(md.Metadata()))
		}

		spanName := fmt.Sprintf("%s %s", inv.Key.RequestName(), inv.Operation)
		ctx, span := m.tracer.Start(ctx, spanName,
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(
				attribute.String("request.type", inv.Key.RequestName()),
				attribute.String("request.kind", inv.Kind.String()),
				attribute.String("operation", inv.Operation.String()),
			),
		)
		defer func() {
			span.SetAttributes(attribute.String("status", status.String()))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			span.End()
		}()

		return next.Invoke(ctx, inv, call)
	})
}

// applyMiddlewares применяет цепочку middleware к базовому Invoker.
// Первый middleware в списке оказывается внешним.
func applyMiddlewares(invoker Invoker, middlewares ...Middleware) Invoker {
	inv := invoker
	for i := len(middlewares) - 1; i >= 0; i-- {
		inv = middlewares[i].Wrap(inv)
	}
	return inv
}

// noopMiddleware представляет собой пустое middleware.
type noopMiddleware struct{}

// Wrap просто возвращает следующий Invoker без изменений.
func (noopMiddleware) Wrap(next Invoker) Invoker {
	return next
}
