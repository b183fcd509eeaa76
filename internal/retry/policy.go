// Package retry re-runs external commands that fail for transient reasons.
//
// A failure is transient when its stderr satisfies one of the policy's
// matchers. Git produces such failures when many processes write the same
// local config at once (lock files, permission races); they clear on their
// own, so a short fixed delay is enough. Scheduling is a constant
// cenkalti/backoff policy capped at MaxRetries, timed by a clock.Clock.
package retry

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Matcher reports whether captured stderr describes a transient failure.
type Matcher func(stderr string) bool

// Contains matches stderr containing substr.
func Contains(substr string) Matcher {
	return func(stderr string) bool {
		return strings.Contains(stderr, substr)
	}
}

// Regexp matches stderr against pattern anywhere in the text.
func Regexp(pattern string) (Matcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid retry pattern %q: %w", pattern, err)
	}
	return re.MatchString, nil
}

// MustRegexp is like Regexp but panics on an invalid pattern.
func MustRegexp(pattern string) Matcher {
	m, err := Regexp(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// DefaultPatterns are the git lock and permission races seen under
// concurrent submodule operations.
var DefaultPatterns = []string{
	`could not lock config file '[^:]+': File exists`,
	`unable to access '[^']+': Permission denied`,
	`could not lock config file`,
	`unknown error occurred while reading the configuration files`,
}

const (
	// DefaultMaxRetries is the number of re-runs after the first attempt.
	DefaultMaxRetries = 5

	// DefaultDelay is the fixed wait between attempts.
	DefaultDelay = 100 * time.Millisecond
)

// Policy decides which failures are retried, how often and how long to wait.
// It is not mutated after construction.
type Policy struct {
	Matchers   []Matcher
	MaxRetries int
	Delay      time.Duration
}

// DefaultPolicy returns the policy built from DefaultPatterns.
func DefaultPolicy() Policy {
	matchers := make([]Matcher, 0, len(DefaultPatterns))
	for _, p := range DefaultPatterns {
		matchers = append(matchers, MustRegexp(p))
	}
	return Policy{
		Matchers:   matchers,
		MaxRetries: DefaultMaxRetries,
		Delay:      DefaultDelay,
	}
}

// NewPolicy compiles patterns into a policy.
func NewPolicy(patterns []string, maxRetries int, delay time.Duration) (Policy, error) {
	if maxRetries < 0 {
		return Policy{}, fmt.Errorf("max retries must not be negative, got %d", maxRetries)
	}
	if delay < 0 {
		return Policy{}, fmt.Errorf("retry delay must not be negative, got %s", delay)
	}

	matchers := make([]Matcher, 0, len(patterns))
	for _, p := range patterns {
		m, err := Regexp(p)
		if err != nil {
			return Policy{}, err
		}
		matchers = append(matchers, m)
	}
	return Policy{Matchers: matchers, MaxRetries: maxRetries, Delay: delay}, nil
}

// Transient reports whether any matcher accepts stderr.
func (p Policy) Transient(stderr string) bool {
	for _, m := range p.Matchers {
		if m(stderr) {
			return true
		}
	}
	return false
}

// MaxAttempts is the total number of runs the policy allows for one command.
func (p Policy) MaxAttempts() int {
	return p.MaxRetries + 1
}
