// Package endpoint implements the EndpointClient (spec.md section 4.6):
// a retrying, circuit-broken wrapper around the completion provider
// that turns a compose.Call into a raw text reply plus usage
// accounting. Grounded on worker_server/core/agent/llm/worker_llm_client.go
// for the go-openai wiring and worker_server/pkg/resilience for the
// retry/circuit-breaker shape, generalized to sony/gobreaker per the
// pack's DercyCheng-go-aigateway usage of the same library.
package endpoint

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"github.com/bridgify/batchdispatch/config"
	"github.com/bridgify/batchdispatch/internal/compose"
	"github.com/bridgify/batchdispatch/internal/domain"
)

// Result is one completed call: raw text plus the usage it billed.
type Result struct {
	Text  string
	Usage compose.Usage
}

// Client is the CompletionEndpoint implementation backed by an
// OpenAI-compatible chat completion API.
type Client struct {
	sdk       *openai.Client
	cfg       *config.Config
	breaker   *gobreaker.CircuitBreaker[Result]
	transport *retryAfterTransport
	log       zerolog.Logger
}

// New builds a Client from config. baseURL, when set, redirects the
// SDK at a compatible self-hosted or proxy endpoint the way
// worker_llm_client.go's NewClientWithConfig lets the caller override
// the model and token defaults.
func New(cfg *config.Config, logger zerolog.Logger) *Client {
	sdkCfg := openai.DefaultConfig(cfg.EndpointAPIKey)
	if cfg.EndpointBaseURL != "" {
		sdkCfg.BaseURL = cfg.EndpointBaseURL
	}

	transport := newRetryAfterTransport(nil)
	sdkCfg.HTTPClient = &http.Client{Transport: transport}

	breakerSettings := gobreaker.Settings{
		Name:        "completion-endpoint",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Client{
		sdk:       openai.NewClientWithConfig(sdkCfg),
		cfg:       cfg,
		breaker:   gobreaker.NewCircuitBreaker[Result](breakerSettings),
		transport: transport,
		log:       logger.With().Str("component", "endpoint_client").Logger(),
	}
}

// Invoke sends one Call and retries it per spec.md section 4.6:
// exponential backoff (base_backoff * 2^attempt) up to max_retries
// attempts (a single attempt when max_retries is below 1), retrying only
// rate_limited/timeout/server_error failures. A call rejected by a
// tripped circuit breaker counts as a server_error attempt and is
// retried after the backoff delay like one. On a rate_limited failure the server's Retry-After value, when present,
// is honored verbatim in place of the exponential delay, matching
// ai_batch_processor.py's _call_with_retry.
func (c *Client) Invoke(ctx context.Context, call compose.Call) (Result, domain.ErrorKind) {
	var lastKind domain.ErrorKind
	delay := c.cfg.BaseBackoff
	maxAttempts := c.cfg.MaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return Result{}, domain.ErrCancelled
			case <-timer.C:
			}
		}

		result, err := c.breaker.Execute(func() (Result, error) {
			return c.complete(ctx, call)
		})
		if err == nil {
			return result, ""
		}

		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			c.log.Warn().Str("state", c.breaker.State().String()).Msg("circuit breaker rejected call")
			lastKind = domain.ErrServerError
			delay = c.cfg.BaseBackoff * time.Duration(1<<uint(attempt))
			continue
		}

		kind := classify(err)
		lastKind = kind
		if ctx.Err() != nil {
			return Result{}, domain.ErrCancelled
		}
		if !retryable(kind) {
			return Result{}, kind
		}

		delay = c.cfg.BaseBackoff * time.Duration(1<<uint(attempt))
		if kind == domain.ErrRateLimited {
			if retryAfter := c.transport.take(); retryAfter > 0 {
				delay = retryAfter
			}
		}

		c.log.Debug().Int("attempt", attempt).Str("kind", string(kind)).Dur("delay", delay).Msg("retrying completion call")
	}

	return Result{}, lastKind
}

func (c *Client) complete(ctx context.Context, call compose.Call) (Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, len(call.Messages))
	for i, m := range call.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	req := openai.ChatCompletionRequest{
		Model:       call.Model,
		Messages:    messages,
		Temperature: call.Temperature,
	}
	if usesMaxCompletionTokens(call.Model) {
		req.MaxCompletionTokens = call.MaxTokens
	} else {
		req.MaxTokens = call.MaxTokens
	}
	if call.ExpectJSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.sdk.CreateChatCompletion(callCtx, req)
	if err != nil {
		return Result{}, err
	}
	if len(resp.Choices) == 0 {
		return Result{}, domain.ErrServerError.Sentinel()
	}

	cost := estimateCost(c.cfg.PricingTable, call.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return Result{
		Text: resp.Choices[0].Message.Content,
		Usage: compose.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
			CostEstimate:     cost,
		},
	}, nil
}

// reasoningModelPrefixes lists the model families whose completions API
// rejects max_tokens in favor of max_completion_tokens.
var reasoningModelPrefixes = []string{"o1", "o3", "o4"}

// usesMaxCompletionTokens reports whether model belongs to a reasoning
// family that takes MaxCompletionTokens instead of MaxTokens.
func usesMaxCompletionTokens(model string) bool {
	for _, prefix := range reasoningModelPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}
