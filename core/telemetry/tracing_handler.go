package telemetry

import (
	"context"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of chaincode spans.
const TracerName = "github.com/anoideaopen/crowdfund"

// TracingHandler starts invoke spans, continuing the client trace carried in
// the transient map when there is one.
type TracingHandler struct {
	Tracer      trace.Tracer
	Propagators propagation.TextMapPropagator
}

// NewTracingHandler returns a handler bound to the global provider and propagator.
func NewTracingHandler() *TracingHandler {
	return &TracingHandler{
		Tracer:      otel.GetTracerProvider().Tracer(TracerName),
		Propagators: otel.GetTextMapPropagator(),
	}
}

// ContextFromStub extracts the remote span context from the transient map.
func (th *TracingHandler) ContextFromStub(stub shim.ChaincodeStubInterface) context.Context {
	transientMap, err := stub.GetTransient()
	if err != nil || len(transientMap) == 0 {
		return context.Background()
	}

	return th.Propagators.Extract(context.Background(), UnpackTransientMap(transientMap))
}

// StartNewSpan starts a span as a child of ctx.
func (th *TracingHandler) StartNewSpan(
	ctx context.Context,
	spanName string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return th.Tracer.Start(ctx, spanName, opts...)
}
