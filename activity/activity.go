// Package activity suggests something to do. It proxies the public Bored
// API and falls back to a built-in list when the upstream is slow or down.
package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultURL     = "https://bored-api.appbrewery.com/random"
	DefaultTimeout = 8 * time.Second

	maxBodySize = 1 << 20
)

// Source tells where an activity came from
type Source string

const (
	SourceUpstream Source = "upstream"
	SourceFallback Source = "fallback"
)

// Activity is a suggestion. Accessibility is a number in the fallback list
// and a label upstream, so it is kept untyped.
type Activity struct {
	Activity      string  `json:"activity"`
	Type          string  `json:"type"`
	Participants  int     `json:"participants"`
	Price         float64 `json:"price"`
	Accessibility any     `json:"accessibility,omitempty"`
	Duration      string  `json:"duration,omitempty"`
	KidFriendly   *bool   `json:"kidFriendly,omitempty"`
	Link          string  `json:"link,omitempty"`
	Key           string  `json:"key,omitempty"`
}

var fallbackActivities = []Activity{
	{Activity: "Create a personal website", Type: "creative", Participants: 1, Price: 0.1, Accessibility: 0.8},
	{Activity: "Learn a new programming language", Type: "education", Participants: 1, Price: 0, Accessibility: 0.3},
	{Activity: "Go for a walk in the park", Type: "relaxation", Participants: 1, Price: 0, Accessibility: 0.1},
	{Activity: "Read a book", Type: "recreational", Participants: 1, Price: 0.05, Accessibility: 0.2},
	{Activity: "Cook a new recipe", Type: "cooking", Participants: 1, Price: 0.3, Accessibility: 0.3},
	{Activity: "Organize your workspace", Type: "busywork", Participants: 1, Price: 0, Accessibility: 0.1},
	{Activity: "Meditate for 10 minutes", Type: "relaxation", Participants: 1, Price: 0, Accessibility: 0.05},
	{Activity: "Call an old friend", Type: "social", Participants: 2, Price: 0, Accessibility: 0.1},
}

// lastResort is served if the fallback list is empty
var lastResort = Activity{
	Activity:      "Plan your next programming project",
	Type:          "creative",
	Participants:  1,
	Price:         0,
	Accessibility: 0.1,
}

// Fallbacks returns a copy of the built-in list
func Fallbacks() []Activity {
	out := make([]Activity, len(fallbackActivities))
	copy(out, fallbackActivities)
	return out
}

// Observer is told where every served activity came from
type Observer interface {
	ObserveActivity(source string)
}

// Client fetches activities. Concurrent callers share one upstream request.
type Client struct {
	url      string
	timeout  time.Duration
	http     *http.Client
	fallback []Activity
	pick     func(n int) int
	observer Observer
	logger   hclog.Logger
	inflight singleflight.Group
}

type Option func(*Client)

func WithURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.url = url
		}
	}
}

// WithTimeout bounds each upstream call, fallback is served past it
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithFallbacks(list []Activity) Option {
	return func(c *Client) {
		c.fallback = list
	}
}

// WithPicker overrides the random index source, used by tests
func WithPicker(pick func(n int) int) Option {
	return func(c *Client) {
		if pick != nil {
			c.pick = pick
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

func WithLogger(logger hclog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		url:      DefaultURL,
		timeout:  DefaultTimeout,
		http:     &http.Client{},
		fallback: fallbackActivities,
		pick:     rand.IntN,
		logger:   hclog.New(&hclog.LoggerOptions{Name: "activity", Level: hclog.Info}),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// Random returns an upstream activity, or a fallback one when the upstream
// fails, times out, or ctx ends first. It never returns an error.
func (c *Client) Random(ctx context.Context) (Activity, Source) {
	ch := c.inflight.DoChan("random", func() (any, error) {
		// detached from any single caller so one cancellation does not
		// fail the others sharing this request
		fetchCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		return c.fetch(fetchCtx)
	})

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.Err != nil {
			c.logger.Warn("activity upstream failed, serving fallback", "error", res.Err, "shared", res.Shared)
			return c.serveFallback()
		}
		c.observe(SourceUpstream)
		return res.Val.(Activity), SourceUpstream
	case <-ctx.Done():
		c.logger.Debug("activity caller gave up, serving fallback", "error", ctx.Err())
		return c.serveFallback()
	case <-timer.C:
		c.logger.Warn("activity upstream timed out, serving fallback", "timeout", c.timeout)
		return c.serveFallback()
	}
}

// Fallback returns a random entry of the built-in list
func (c *Client) Fallback() Activity {
	if len(c.fallback) == 0 {
		return lastResort
	}
	return c.fallback[c.pick(len(c.fallback))]
}

func (c *Client) serveFallback() (Activity, Source) {
	c.observe(SourceFallback)
	return c.Fallback(), SourceFallback
}

func (c *Client) observe(src Source) {
	if c.observer != nil {
		c.observer.ObserveActivity(string(src))
	}
}

func (c *Client) fetch(ctx context.Context) (Activity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Activity{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Activity{}, fmt.Errorf("request activity: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return Activity{}, fmt.Errorf("upstream responded with status %d", resp.StatusCode)
	}

	var a Activity
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&a); err != nil {
		return Activity{}, fmt.Errorf("decode activity: %w", err)
	}

	if a.Activity == "" {
		return Activity{}, fmt.Errorf("upstream returned an empty activity")
	}

	return a, nil
}
