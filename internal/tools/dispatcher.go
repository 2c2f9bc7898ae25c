package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bgash22/voicebridge-ai-website/internal/metrics"
)

// Dispatch errors.
var (
	ErrUnknownFunction  = errors.New("unknown function")
	ErrInvalidArguments = errors.New("invalid function arguments")
)

// ErrorResult is the in-band failure variant of a tool result. It is a
// successful dispatch: the model reads the message and answers the user.
type ErrorResult struct {
	Error string `json:"error"`
}

// argument shapes, decoded by field name.
type (
	drugInfoArgs struct {
		DrugName string `json:"drug_name"`
	}
	placeOrderArgs struct {
		CustomerName string `json:"customer_name"`
		DrugName     string `json:"drug_name"`
	}
	lookupOrderArgs struct {
		OrderID int64 `json:"order_id"`
	}
	trackShipmentArgs struct {
		TrackingNumber string `json:"tracking_number"`
	}
)

type handler func(ctx context.Context, args json.RawMessage) (any, error)

// bind adapts a typed tool function to the raw-argument handler signature.
func bind[T any](fn func(context.Context, T) (any, error)) handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args T
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		return fn(ctx, args)
	}
}

var validator = mustSchemaValidator(definitions)

func mustSchemaValidator(defs []Definition) *schemaValidator {
	v, err := newSchemaValidator(defs)
	if err != nil {
		panic(err)
	}
	return v
}

// Options configures a Dispatcher.
type Options struct {
	Catalog *Catalog
	Orders  OrderStore
	Tracker Tracker
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Dispatcher runs mock backend tools by name.
type Dispatcher struct {
	catalog  *Catalog
	orders   OrderStore
	tracker  Tracker
	logger   *slog.Logger
	metrics  *metrics.Metrics
	handlers map[string]handler
}

// NewDispatcher creates a dispatcher. Missing options fall back to the
// default catalog, an in-memory order store and the mock tracker.
func NewDispatcher(opts Options) *Dispatcher {
	d := &Dispatcher{
		catalog: opts.Catalog,
		orders:  opts.Orders,
		tracker: opts.Tracker,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if d.catalog == nil {
		d.catalog = DefaultCatalog()
	}
	if d.orders == nil {
		d.orders = NewMemoryStore()
	}
	if d.tracker == nil {
		d.tracker = MockTracker{}
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	d.logger = d.logger.With("component", "tools")

	d.handlers = map[string]handler{
		GetDrugInfo:   bind(d.getDrugInfo),
		PlaceOrder:    bind(d.placeOrder),
		LookupOrder:   bind(d.lookupOrder),
		TrackShipment: bind(d.trackShipment),
	}
	return d
}

// Dispatch validates args against the named tool's schema, runs it and
// returns its JSON result. Domain misses come back as an ErrorResult, not
// as an error.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args json.RawMessage) (json.RawMessage, error) {
	h, ok := d.handlers[name]
	if !ok {
		d.record(name, "unknown")
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}

	if trimmed := bytes.TrimSpace(args); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		args = json.RawMessage("{}")
	}

	if err := validator.validate(name, args); err != nil {
		d.record(name, "invalid_arguments")
		d.logger.Warn("Rejected tool arguments", "tool", name, "error", err)
		return nil, err
	}

	d.logger.Info("Executing tool", "tool", name, "args", string(args))

	result, err := h(ctx, args)
	if err != nil {
		if errors.Is(err, ErrInvalidArguments) {
			d.record(name, "invalid_arguments")
		} else {
			d.record(name, "failure")
		}
		d.logger.Error("Tool execution failed", "tool", name, "error", err)
		return nil, err
	}

	out, err := json.Marshal(result)
	if err != nil {
		d.record(name, "failure")
		return nil, fmt.Errorf("failed to marshal %s result: %w", name, err)
	}

	if _, isErr := result.(ErrorResult); isErr {
		d.record(name, "error_result")
	} else {
		d.record(name, "ok")
	}
	d.logger.Debug("Tool result", "tool", name, "result", string(out))
	return out, nil
}

// Has reports whether name is a known tool.
func (d *Dispatcher) Has(name string) bool {
	_, ok := d.handlers[name]
	return ok
}

func (d *Dispatcher) record(tool, outcome string) {
	if d.metrics != nil {
		d.metrics.RecordToolDispatch(tool, outcome)
	}
}

func (d *Dispatcher) getDrugInfo(_ context.Context, args drugInfoArgs) (any, error) {
	drug, ok := d.catalog.Lookup(args.DrugName)
	if !ok {
		return ErrorResult{Error: fmt.Sprintf("Could not find information for %s.", args.DrugName)}, nil
	}
	return drug, nil
}

// placeOrder checks the drug before allocating an id so failed orders
// leave no gap in the sequence.
func (d *Dispatcher) placeOrder(ctx context.Context, args placeOrderArgs) (any, error) {
	if res, _ := d.getDrugInfo(ctx, drugInfoArgs{DrugName: args.DrugName}); isErrorResult(res) {
		return res, nil
	}

	id, err := d.orders.NextOrderID(ctx)
	if err != nil {
		return nil, err
	}
	order := Order{
		OrderID:      id,
		CustomerName: args.CustomerName,
		DrugName:     args.DrugName,
		Status:       OrderStatusPending,
	}
	if err := d.orders.SaveOrder(ctx, order); err != nil {
		return nil, err
	}

	if d.metrics != nil {
		d.metrics.RecordOrderPlaced()
	}
	d.logger.Info("Order placed", "order_id", id, "drug", args.DrugName)
	return order, nil
}

func (d *Dispatcher) lookupOrder(ctx context.Context, args lookupOrderArgs) (any, error) {
	order, err := d.orders.GetOrder(ctx, args.OrderID)
	if errors.Is(err, ErrOrderNotFound) {
		return ErrorResult{Error: fmt.Sprintf("Could not find order with ID %d.", args.OrderID)}, nil
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (d *Dispatcher) trackShipment(ctx context.Context, args trackShipmentArgs) (any, error) {
	cleaned := CleanTrackingNumber(args.TrackingNumber)
	if cleaned == "" {
		return ErrorResult{Error: "Invalid tracking number provided."}, nil
	}
	return d.tracker.Track(ctx, cleaned)
}

// CleanTrackingNumber keeps only the ASCII digits of s.
func CleanTrackingNumber(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func isErrorResult(v any) bool {
	_, ok := v.(ErrorResult)
	return ok
}
