package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/anomalyhq/corpusd/internal/logging"
	"github.com/anomalyhq/corpusd/internal/orchestrator"
	"github.com/anomalyhq/corpusd/internal/reqctx"
	"github.com/anomalyhq/corpusd/internal/tools"
)

// OrchestrateRequest is the body of every orchestration entry point.
type OrchestrateRequest struct {
	Tenant   string              `json:"tenant"`
	Identity string              `json:"identity"`
	Locale   string              `json:"locale,omitempty"`
	Group    tools.GroupName     `json:"group,omitempty"`
	Input    string              `json:"input"`
	Turns    []orchestrator.Turn `json:"turns,omitempty"`
}

// ErrorResponse is the JSON shape of every error.
type ErrorResponse struct {
	Kind    tools.Kind `json:"kind"`
	Field   string     `json:"field,omitempty"`
	Message string     `json:"message"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{Status: "ok", Service: "corpusd"})
}

type toolsResponse struct {
	Group tools.GroupName    `json:"group"`
	Tools []tools.Definition `json:"tools"`
}

func (s *Server) handleTools(c echo.Context) error {
	group := tools.GroupName(c.QueryParam("group"))
	if group == "" {
		group = tools.GroupUnified
	}
	if !group.Valid() {
		return errorJSON(c, tools.InvalidArgument("group", "unknown tool group %q", group))
	}
	return c.JSON(http.StatusOK, toolsResponse{Group: group, Tools: tools.DefinitionsFor(group)})
}

func (s *Server) handleOrchestrate(c echo.Context) error {
	req, rc, err := s.bindRequest(c)
	if err != nil {
		return errorJSON(c, err)
	}

	group := req.Group
	if group == "" {
		group = tools.GroupUnified
	}

	res, err := s.orch.Run(c.Request().Context(), rc, group, req.Input, req.Turns)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, orchestrator.Assemble(res))
}

func (s *Server) handleRoute(c echo.Context) error {
	req, rc, err := s.bindRequest(c)
	if err != nil {
		return errorJSON(c, err)
	}

	out, err := s.router.Route(c.Request().Context(), rc, req.Input, req.Turns)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleSpecialist(c echo.Context) error {
	req, rc, err := s.bindRequest(c)
	if err != nil {
		return errorJSON(c, err)
	}

	env, err := s.router.RunSpecialist(c.Request().Context(), rc, c.Param("name"), req.Input, req.Turns)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, env)
}

// bindRequest decodes the body and builds the tenant-scoped request
// context every downstream call requires.
func (s *Server) bindRequest(c echo.Context) (*OrchestrateRequest, *reqctx.Context, error) {
	var req OrchestrateRequest
	if err := c.Bind(&req); err != nil {
		return nil, nil, tools.Errorf(tools.KindInvalidArguments, "malformed request body: %v", err)
	}
	if req.Tenant == "" {
		return nil, nil, tools.Errorf(tools.KindMissingContextField, "tenant required")
	}
	if req.Identity == "" {
		return nil, nil, tools.Errorf(tools.KindMissingContextField, "identity required")
	}
	if req.Group != "" && !req.Group.Valid() {
		return nil, nil, tools.InvalidArgument("group", "unknown tool group %q", req.Group)
	}

	handle, err := s.stores.Open(req.Tenant)
	if err != nil {
		return nil, nil, err
	}

	opts := []reqctx.Option{
		reqctx.WithTraceID(c.Response().Header().Get(echo.HeaderXRequestID)),
	}
	if req.Locale != "" {
		opts = append(opts, reqctx.WithLocale(req.Locale))
	}
	rc, err := reqctx.New(handle, req.Identity, opts...)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Debug("request bound", logging.RequestFields(rc)...)
	return &req, rc, nil
}

// errorJSON maps the error taxonomy onto HTTP statuses.
func errorJSON(c echo.Context, err error) error {
	te := tools.Convert(err)
	return c.JSON(statusFor(te.Kind), ErrorResponse{
		Kind:    te.Kind,
		Field:   te.Field,
		Message: te.Message,
	})
}

func statusFor(kind tools.Kind) int {
	switch kind {
	case tools.KindInvalidArguments, tools.KindInvalidGeometry,
		tools.KindUnsupportedFormat, tools.KindInvalidContext,
		tools.KindMissingContextField:
		return http.StatusBadRequest
	case tools.KindUnknownTool, tools.KindSeedNotFound, tools.KindNoSpecialistMatch:
		return http.StatusNotFound
	case tools.KindInsufficientData, tools.KindComparisonIncomplete:
		return http.StatusUnprocessableEntity
	case tools.KindBudgetExceeded:
		return http.StatusTooManyRequests
	case tools.KindTimeout:
		return http.StatusGatewayTimeout
	case tools.KindStoreUnavailable, tools.KindEmbeddingUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
