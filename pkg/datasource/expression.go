package datasource

import (
	"context"
	"fmt"
	"strings"
	"time"

	templating "github.com/goliatone/go-templating"
)

// ExpressionOption configures an ExpressionDatasource.
type ExpressionOption func(*ExpressionDatasource)

// WithData binds data under the "data" identifier of every query.
func WithData(data map[string]any) ExpressionOption {
	return func(d *ExpressionDatasource) {
		d.data = data
	}
}

// WithEvaluatorLogger records every evaluation.
func WithEvaluatorLogger(logger EvaluatorLogger) ExpressionOption {
	return func(d *ExpressionDatasource) {
		if logger == nil {
			logger = noopEvaluatorLogger{}
		}
		d.logger = logger
	}
}

// ExpressionDatasource answers variable queries by evaluating the query as
// an expression. Variable references in the query are interpolated first.
// The environment exposes:
//
//	data          the static data set with WithData
//	vars          current value of every variable by name
//	searchFilter  the option search filter, if any
//	variable      name of the variable being refreshed
//	now           evaluation time
type ExpressionDatasource struct {
	evaluator Evaluator
	data      map[string]any
	logger    EvaluatorLogger
}

// NewExpressionDatasource wraps evaluator. It fails when evaluator is nil,
// which is what NewJSEvaluator returns without the js_eval build tag.
func NewExpressionDatasource(evaluator Evaluator, opts ...ExpressionOption) (*ExpressionDatasource, error) {
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	d := &ExpressionDatasource{
		evaluator: evaluator,
		logger:    noopEvaluatorLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d, nil
}

// MetricFindQuery implements templating.Datasource.
func (d *ExpressionDatasource) MetricFindQuery(ctx context.Context, query string, opts templating.QueryOptions) ([]templating.MetricFindValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	expression := strings.TrimSpace(templating.Interpolate(opts.Variables, query, templating.FormatRaw))
	if expression == "" {
		return nil, nil
	}

	scope := ""
	if opts.Variable != nil {
		scope = opts.Variable.Name
	}
	env := Env{
		"data":         d.data,
		"vars":         currentValues(opts.Variables),
		"searchFilter": opts.SearchFilter,
		"variable":     scope,
	}

	start := time.Now()
	result, err := d.evaluator.Evaluate(env, expression)
	err = wrapEvaluationError(d.evaluator.Engine(), expression, scope, err)
	d.logger.LogEvaluation(EvaluatorLogEvent{
		Engine:   d.evaluator.Engine(),
		Expr:     expression,
		Scope:    scope,
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return nil, err
	}

	records, err := ToMetricFindValues(result)
	if err != nil {
		return nil, fmt.Errorf("datasource: %s query %q: %w", d.evaluator.Engine(), expression, err)
	}
	return records, nil
}

func currentValues(state templating.State) map[string]any {
	values := make(map[string]any, state.Len())
	for _, variable := range state.Variables() {
		base := variable.Common()
		values[base.Name] = base.Current.Value
	}
	return values
}
