package datasource

import (
	"context"
	"fmt"
	"net/http"

	"github.com/carlmjohnson/requests"
	"golang.org/x/time/rate"

	templating "github.com/goliatone/go-templating"
)

// DefaultMetricFindPath is the path queried when none is configured.
const DefaultMetricFindPath = "/api/metric-find"

// HTTPOption configures an HTTPDatasource.
type HTTPOption func(*HTTPDatasource)

// HTTPWithClient sets the HTTP client used for requests.
func HTTPWithClient(client *http.Client) HTTPOption {
	return func(d *HTTPDatasource) {
		d.client = client
	}
}

// HTTPWithPath overrides DefaultMetricFindPath.
func HTTPWithPath(path string) HTTPOption {
	return func(d *HTTPDatasource) {
		d.path = path
	}
}

// HTTPWithBearerToken authenticates requests with a bearer token.
func HTTPWithBearerToken(token string) HTTPOption {
	return func(d *HTTPDatasource) {
		d.token = token
	}
}

// HTTPWithBasicAuth authenticates requests with basic auth.
func HTTPWithBasicAuth(username, password string) HTTPOption {
	return func(d *HTTPDatasource) {
		d.username, d.password = username, password
	}
}

// HTTPWithHeader adds a static header to every request.
func HTTPWithHeader(key, value string) HTTPOption {
	return func(d *HTTPDatasource) {
		if d.headers == nil {
			d.headers = map[string]string{}
		}
		d.headers[key] = value
	}
}

// HTTPWithRateLimit throttles requests through limiter. Queries wait for a
// token and fail when ctx ends first.
func HTTPWithRateLimit(limiter *rate.Limiter) HTTPOption {
	return func(d *HTTPDatasource) {
		d.limiter = limiter
	}
}

// HTTPDatasource posts variable queries to a remote metric-find endpoint.
// The response body is a JSON list of strings, numbers or
// {"text", "value"} objects.
type HTTPDatasource struct {
	baseURL  string
	path     string
	client   *http.Client
	token    string
	username string
	password string
	headers  map[string]string
	limiter  *rate.Limiter
}

// MetricFindRequest is the JSON body sent to the endpoint.
type MetricFindRequest struct {
	Query        string            `json:"query"`
	Variable     string            `json:"variable,omitempty"`
	SearchFilter string            `json:"searchFilter,omitempty"`
	Variables    map[string]string `json:"variables,omitempty"`
}

// NewHTTPDatasource constructs a datasource for the endpoint at baseURL.
func NewHTTPDatasource(baseURL string, opts ...HTTPOption) *HTTPDatasource {
	d := &HTTPDatasource{baseURL: baseURL, path: DefaultMetricFindPath}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// MetricFindQuery implements templating.Datasource. Variable references in
// query are interpolated before sending and the refresh request id is sent
// as X-Request-Id.
func (d *HTTPDatasource) MetricFindQuery(ctx context.Context, query string, opts templating.QueryOptions) ([]templating.MetricFindValue, error) {
	payload := MetricFindRequest{
		Query:        templating.Interpolate(opts.Variables, query, templating.FormatRaw),
		SearchFilter: opts.SearchFilter,
		Variables:    map[string]string{},
	}
	if opts.Variable != nil {
		payload.Variable = opts.Variable.Name
	}
	for _, variable := range opts.Variables.Variables() {
		base := variable.Common()
		payload.Variables[base.Name] = base.Current.Value
	}

	var response []any
	builder := requests.
		URL(d.baseURL).
		Path(d.path).
		Accept("application/json").
		BodyJSON(&payload).
		ToJSON(&response)
	if d.client != nil {
		builder.Client(d.client)
	}
	if d.token != "" {
		builder.Bearer(d.token)
	}
	if d.username != "" {
		builder.BasicAuth(d.username, d.password)
	}
	for key, value := range d.headers {
		builder.Header(key, value)
	}
	if opts.RequestID != "" {
		builder.Header("X-Request-Id", opts.RequestID)
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("datasource: http %s: rate limit: %w", d.baseURL, err)
		}
	}
	if err := builder.Fetch(ctx); err != nil {
		return nil, fmt.Errorf("datasource: http %s: %w", d.baseURL, err)
	}
	return ToMetricFindValues(response)
}
