package cli

import (
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mockwire/mockwire/internal/config"
	"github.com/mockwire/mockwire/internal/errors"
	"github.com/mockwire/mockwire/internal/record"
	"github.com/mockwire/mockwire/internal/rules"
	"github.com/mockwire/mockwire/pkg/client"
	"github.com/mockwire/mockwire/pkg/events"
	"github.com/mockwire/mockwire/pkg/interceptor"
	"github.com/mockwire/mockwire/pkg/observer"
	"github.com/mockwire/mockwire/pkg/openapi"
)

// SendHandler handles the send command: one request through an
// interception session, rendered to stdout.
type SendHandler struct {
	logger zerolog.Logger
}

// NewSendHandler creates a new send command handler
func NewSendHandler(logger zerolog.Logger) *SendHandler {
	return &SendHandler{
		logger: logger.With().Str("handler", "send").Logger(),
	}
}

// Execute handles the send command
func (h *SendHandler) Execute(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFlags(cmd.Flags())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load configuration")
		return err
	}

	if err := cfg.Validate(); err != nil {
		h.logger.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	if len(args) == 0 {
		h.logger.Warn().Msg("no URL provided")
		return errors.New(errors.ErrorTypeValidation, "a URL is required").
			WithContext("suggestion", "provide a URL or path as an argument")
	}
	target := args[0]

	h.logger.Debug().
		Str("method", cfg.Method).
		Str("url", target).
		Msg("processing send command")

	resolver, err := h.buildResolver(cmd, cfg)
	if err != nil {
		return err
	}

	opts := []interceptor.Option{}
	if cfg.Base != "" {
		base, err := url.Parse(cfg.Base)
		if err != nil || !base.IsAbs() {
			return errors.New(errors.ErrorTypeValidation, "base must be an absolute URL").
				WithContext("base", cfg.Base)
		}
		opts = append(opts, interceptor.WithBaseURL(base))
	}

	if cfg.RecordDB != "" {
		recorder, err := record.Open(cfg.RecordDB)
		if err != nil {
			return err
		}
		recorder.Attach(observer.Default)
		defer recorder.Close()
	}

	session := interceptor.New(resolver, opts...)
	session.Apply()
	defer session.Restore()

	return h.send(cfg, target)
}

// buildResolver composes the configured mock sources. Rules win over
// document examples; when neither matches, the request goes out for
// real.
func (h *SendHandler) buildResolver(cmd *cobra.Command, cfg *config.Config) (client.Resolver, error) {
	var resolvers []client.Resolver

	if cfg.RulesFile != "" {
		engine, err := rules.Load(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		h.logger.Debug().Int("rules", engine.Len()).Str("file", cfg.RulesFile).Msg("loaded rules")
		resolvers = append(resolvers, engine.Resolver())
	}

	if cfg.OpenAPIURL != "" {
		source := openapi.NewSource()
		if err := source.LoadFromURL(cmd.Context(), cfg.OpenAPIURL); err != nil {
			return nil, err
		}
		h.logger.Debug().Str("document", source.Title()).Msg("loaded OpenAPI document")
		resolvers = append(resolvers, source.Resolver())
	}

	return interceptor.Chain(resolvers...), nil
}

func (h *SendHandler) send(cfg *config.Config, target string) error {
	c := client.New()
	if err := c.Open(cfg.Method, target); err != nil {
		return err
	}

	for _, raw := range cfg.Headers {
		name, value, ok := strings.Cut(raw, ":")
		if !ok {
			return errors.New(errors.ErrorTypeValidation, "malformed header").
				WithContext("header", raw).
				WithContext("suggestion", "use the form 'Name: value'")
		}
		c.SetRequestHeader(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	if cfg.Timeout > 0 {
		c.SetTimeout(cfg.Timeout)
	}

	var failure events.Type
	for _, t := range []events.Type{events.Error, events.Timeout} {
		t := t
		c.AddEventListener(t, func(events.Event) { failure = t })
	}

	if err := c.Send(cfg.Data); err != nil {
		return err
	}
	<-c.Done()

	if c.ReadyState() != client.Done {
		msg := "request failed"
		if failure == events.Timeout {
			msg = "request timed out"
		}
		return errors.New(errors.ErrorTypeNetwork, msg).
			WithContext("url", target)
	}

	renderResponse(c, cfg.IncludeHeaders)
	return nil
}
