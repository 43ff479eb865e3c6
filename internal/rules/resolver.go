package rules

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/mockwire/mockwire/internal/logger"
	"github.com/mockwire/mockwire/pkg/client"
)

// Resolver adapts the engine to the client pipeline. Matched rules
// fabricate responses; anything else passes through. Patch entries are
// applied to the body after rendering, so a rule can start from a body
// template and override fields per deployment.
func (e *Engine) Resolver() client.Resolver {
	log := logger.ForComponent("rules")
	return func(req *client.Request, _ *client.Emulated) (*client.MockResponse, error) {
		rule := e.Eval(requestCtx(req))
		if rule == nil {
			return nil, nil
		}
		mock := &client.MockResponse{
			Status:     rule.Respond.Status,
			StatusText: rule.Respond.StatusText,
			Headers:    rule.Respond.Headers,
			Body:       rule.Respond.Body,
		}
		for path, value := range rule.Respond.Patch {
			if err := mock.PatchJSON(path, value); err != nil {
				return nil, err
			}
		}
		logRule(log, rule, req)
		return mock, nil
	}
}

func requestCtx(req *client.Request) Ctx {
	headers := make(map[string]string)
	req.Headers.Each(func(name, value string) {
		headers[strings.ToLower(name)] = value
	})
	return Ctx{
		URL:     req.URL.String(),
		Method:  req.Method,
		Headers: headers,
	}
}

func logRule(log zerolog.Logger, rule *Rule, req *client.Request) {
	log.Debug().
		Str("rule", rule.Name).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Msg("rule matched")
}
