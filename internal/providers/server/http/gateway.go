package http

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/vmsops/vmsctl/config"
	"github.com/vmsops/vmsctl/internal/providers/shared/tlsconfig"
	"github.com/vmsops/vmsctl/resource"
	"github.com/vmsops/vmsctl/schema"
	"github.com/vmsops/vmsctl/server"
)

const (
	defaultMediaType = "application/json"
	apiPrefix        = "/api/"
)

var _ server.RemoteState = (*VMSGateway)(nil)

// VMSGateway talks to the appliance management endpoint over HTTPS with JSON
// bodies. One gateway serves one endpoint for the lifetime of a run.
type VMSGateway struct {
	baseURL *url.URL
	auth    authConfig
	tenant  string
	client  *http.Client
	log     logr.Logger
}

type GatewayOption func(*VMSGateway)

func WithLogger(log logr.Logger) GatewayOption {
	return func(g *VMSGateway) {
		if g == nil {
			return
		}
		g.log = log
	}
}

func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *VMSGateway) {
		if g == nil || client == nil {
			return
		}
		g.client = client
	}
}

func NewVMSGateway(cfg config.Endpoint, opts ...GatewayOption) (*VMSGateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, validationError("endpoint.base-url is invalid", err)
	}
	if baseURL.Path == "" {
		baseURL.Path = "/"
	}

	auth, err := buildAuthConfig(cfg.Auth)
	if err != nil {
		return nil, err
	}

	tlsConfig, err := tlsconfig.ClientConfig(cfg.TLS, "endpoint")
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig

	gateway := &VMSGateway{
		baseURL: baseURL,
		auth:    auth,
		tenant:  strings.TrimSpace(cfg.Tenant),
		client: &http.Client{
			Timeout:   cfg.EffectiveTimeout(),
			Transport: transport,
		},
		log: logr.Discard(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(gateway)
	}
	return gateway, nil
}

// maxListPages bounds next-link traversal so a remote that keeps handing out
// links can never spin a run forever.
const maxListPages = 1000

func (g *VMSGateway) List(ctx context.Context, descriptor schema.Descriptor) ([]resource.Object, error) {
	var objects []resource.Object

	requestPath := collectionPath(descriptor.Collection)
	var query map[string]string
	for page := 1; ; page++ {
		if page > maxListPages {
			return nil, transportError(
				"listing "+descriptor.Collection+" exceeded "+strconv.Itoa(maxListPages)+" pages",
				nil,
			)
		}

		body, err := g.execute(ctx, http.MethodGet, requestPath, query, nil)
		if err != nil {
			return nil, err
		}

		pageObjects, next, err := decodeListPage(descriptor, body)
		if err != nil {
			return nil, err
		}
		objects = append(objects, pageObjects...)

		if next == "" {
			break
		}
		requestPath, query, err = g.resolveNextLink(next)
		if err != nil {
			return nil, err
		}
	}

	if objects == nil {
		objects = []resource.Object{}
	}
	return objects, nil
}

// resolveNextLink turns the absolute "next" URL from a paginated listing back
// into a request path and query against the configured endpoint.
func (g *VMSGateway) resolveNextLink(next string) (string, map[string]string, error) {
	parsed, err := url.Parse(next)
	if err != nil {
		return "", nil, validationError("list response \"next\" link is invalid", err)
	}

	requestPath := parsed.Path
	if basePath := strings.TrimRight(g.baseURL.Path, "/"); basePath != "" {
		requestPath = strings.TrimPrefix(requestPath, basePath)
	}
	if !strings.HasPrefix(requestPath, apiPrefix) {
		return "", nil, validationError("list response \"next\" link does not target the management API: "+next, nil)
	}

	values := parsed.Query()
	query := make(map[string]string, len(values))
	for key := range values {
		query[key] = values.Get(key)
	}
	return requestPath, query, nil
}

func (g *VMSGateway) Create(ctx context.Context, descriptor schema.Descriptor, attrs resource.Attributes) (resource.Object, error) {
	body, err := g.execute(ctx, http.MethodPost, collectionPath(descriptor.Collection), nil, attrs)
	if err != nil {
		return resource.Object{}, err
	}
	return decodeObjectResponse(body)
}

func (g *VMSGateway) Update(ctx context.Context, descriptor schema.Descriptor, id string, attrs resource.Attributes) (resource.Object, error) {
	path, err := objectPath(descriptor.Collection, id)
	if err != nil {
		return resource.Object{}, err
	}
	body, err := g.execute(ctx, http.MethodPatch, path, nil, attrs)
	if err != nil {
		return resource.Object{}, err
	}
	return decodeObjectResponse(body)
}

func (g *VMSGateway) Delete(ctx context.Context, descriptor schema.Descriptor, id string) (resource.Object, error) {
	path, err := objectPath(descriptor.Collection, id)
	if err != nil {
		return resource.Object{}, err
	}
	body, err := g.execute(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return resource.Object{}, err
	}
	return decodeObjectResponse(body)
}

func (g *VMSGateway) Request(
	ctx context.Context,
	method string,
	endpointPath string,
	query map[string]string,
	body resource.Value,
) (resource.Value, error) {
	resolvedMethod := strings.ToUpper(strings.TrimSpace(method))
	if resolvedMethod == "" {
		return nil, validationError("request method is required", nil)
	}

	trimmedPath := strings.Trim(strings.TrimSpace(endpointPath), "/")
	if trimmedPath == "" {
		return nil, validationError("request path is required", nil)
	}

	responseBody, err := g.execute(ctx, resolvedMethod, apiPrefix+trimmedPath+"/", query, body)
	if err != nil {
		return nil, err
	}
	return decodeJSONResponse(responseBody)
}

// collectionPath builds the listing/create endpoint, always with a trailing
// slash the way the appliance routes expect.
func collectionPath(collection string) string {
	return apiPrefix + strings.Trim(collection, "/") + "/"
}

// objectPath refuses an empty identifier so a failed lookup can never turn
// into a request against the whole collection.
func objectPath(collection string, id string) (string, error) {
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return "", validationError("resolved identifier for collection "+collection+" is empty", nil)
	}
	return collectionPath(collection) + url.PathEscape(trimmedID) + "/", nil
}

// requestTimeout reports the configured client timeout, for logging.
func (g *VMSGateway) requestTimeout() time.Duration {
	if g == nil || g.client == nil {
		return 0
	}
	return g.client.Timeout
}
