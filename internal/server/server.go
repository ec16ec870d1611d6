package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"tenureline/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Repo     repo.Repo
	BasePath string
	Auth     AuthConfig
	Log      *logrus.Entry
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"tenure not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the read-only browse API over a built
// corpus: tenures, orders, officers and the data errors of the last run.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	hcfg := huma.DefaultConfig("Tenureline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerSummary(group, cfg.Repo)
	registerTenures(group, cfg.Repo)
	registerOrders(group, cfg.Repo)
	registerOfficers(group, cfg.Repo)
	registerErrors(group, cfg.Repo)
	registerEvents(group, cfg.Repo)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if err == repo.ErrNotFound {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error",
		map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerSummary(api huma.API, r repo.Repo) {
	huma.Register(api, huma.Operation{
		OperationID: "summary",
		Method:      http.MethodGet,
		Path:        "/summary",
		Summary:     "Corpus summary",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SummaryResponse `json:"body"`
	}, error) {
		tenures, err := r.ListTenures(ctx, repo.TenureFilters{})
		if err != nil {
			return nil, handleError(err)
		}
		officers, err := r.ListOfficers(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		orders, err := r.ListOrders(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		counts, err := r.CountErrorsByKind(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SummaryResponse `json:"body"`
		}{Body: SummaryResponse{
			Orders:       len(orders),
			Officers:     len(officers),
			Tenures:      len(tenures),
			ErrorsByKind: counts,
		}}, nil
	})
}

func registerTenures(api huma.API, r repo.Repo) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tenures",
		Method:      http.MethodGet,
		Path:        "/tenures",
		Summary:     "List tenures",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		OfficerID string `query:"officer_id"`
		PostID    string `query:"post_id"`
		Role      string `query:"role"`
	}) (*struct {
		Body []TenureResponse `json:"body"`
	}, error) {
		items, err := r.ListTenures(ctx, repo.TenureFilters{
			OfficerID: input.OfficerID,
			PostID:    input.PostID,
			Role:      input.Role,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []TenureResponse `json:"body"`
		}{Body: mapTenures(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tenure",
		Method:      http.MethodGet,
		Path:        "/tenures/{tenure_id}",
		Summary:     "Get tenure",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TenureID string `path:"tenure_id"`
	}) (*struct {
		Body TenureResponse `json:"body"`
	}, error) {
		t, err := r.GetTenure(ctx, input.TenureID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TenureResponse `json:"body"`
		}{Body: tenureResponse(t)}, nil
	})
}

func registerOrders(api huma.API, r repo.Repo) {
	huma.Register(api, huma.Operation{
		OperationID: "list-orders",
		Method:      http.MethodGet,
		Path:        "/orders",
		Summary:     "List orders",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []OrderResponse `json:"body"`
	}, error) {
		items, err := r.ListOrders(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []OrderResponse `json:"body"`
		}{Body: mapOrders(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-order",
		Method:      http.MethodGet,
		Path:        "/orders/{order_id}",
		Summary:     "Get order",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		OrderID string `path:"order_id"`
	}) (*struct {
		Body OrderResponse `json:"body"`
	}, error) {
		o, err := r.GetOrder(ctx, input.OrderID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body OrderResponse `json:"body"`
		}{Body: orderResponse(o)}, nil
	})
}

func registerOfficers(api huma.API, r repo.Repo) {
	huma.Register(api, huma.Operation{
		OperationID: "list-officers",
		Method:      http.MethodGet,
		Path:        "/officers",
		Summary:     "List officers",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []OfficerResponse `json:"body"`
	}, error) {
		items, err := r.ListOfficers(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []OfficerResponse `json:"body"`
		}{Body: mapOfficers(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-officer",
		Method:      http.MethodGet,
		Path:        "/officers/{officer_id}",
		Summary:     "Get officer with tenures",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		OfficerID string `path:"officer_id"`
	}) (*struct {
		Body OfficerDetailResponse `json:"body"`
	}, error) {
		o, err := r.GetOfficer(ctx, input.OfficerID)
		if err != nil {
			return nil, handleError(err)
		}
		tenures, err := r.ListTenures(ctx, repo.TenureFilters{OfficerID: input.OfficerID})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body OfficerDetailResponse `json:"body"`
		}{Body: OfficerDetailResponse{
			Officer: officerResponse(o),
			Tenures: mapTenures(tenures),
		}}, nil
	})
}

func registerErrors(api huma.API, r repo.Repo) {
	huma.Register(api, huma.Operation{
		OperationID: "list-errors",
		Method:      http.MethodGet,
		Path:        "/errors",
		Summary:     "List data errors from the last build",
	}, func(ctx context.Context, input *struct {
		Kind string `query:"kind"`
	}) (*struct {
		Body []ErrorResponse `json:"body"`
	}, error) {
		items, err := r.ListErrors(ctx, repo.ErrorFilters{Kind: input.Kind})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ErrorResponse `json:"body"`
		}{Body: mapErrors(items)}, nil
	})
}

func registerEvents(api huma.API, r repo.Repo) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "Latest audit events",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit"`
	}) (*struct {
		Body []repo.Event `json:"body"`
	}, error) {
		items, err := r.LatestEvents(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []repo.Event `json:"body"`
		}{Body: items}, nil
	})
}
