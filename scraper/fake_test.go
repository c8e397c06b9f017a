package scraper

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/use-agent/webparser/browser"
)

// fakeProvider hands out a prepared session, or fails.
type fakeProvider struct {
	sess     *fakeSession
	err      error
	acquired atomic.Int32
	lastOpts browser.SessionOptions
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Acquire(ctx context.Context, opts browser.SessionOptions) (browser.Session, error) {
	p.acquired.Add(1)
	p.lastOpts = opts
	if p.err != nil {
		return nil, p.err
	}
	return p.sess, nil
}

// fakeSession replays scripted responses to the observer. Responses in
// during are delivered before Navigate returns; responses in after are
// delivered from a goroutine once afterDelay has passed.
type fakeSession struct {
	during     []browser.Response
	after      []browser.Response
	afterDelay time.Duration

	navErr   error
	navBlock bool // Navigate waits for ctx to end
	html     string
	htmlErr  error

	mu        sync.Mutex
	match     func(string) bool
	fn        func(browser.Response)
	stopped   bool
	navigated []browser.WaitCondition
	closed    atomic.Int32
}

func (s *fakeSession) Navigate(ctx context.Context, url string, cond browser.WaitCondition) error {
	s.mu.Lock()
	s.navigated = append(s.navigated, cond)
	s.mu.Unlock()

	s.deliver(s.during)
	if len(s.after) > 0 {
		go func() {
			time.Sleep(s.afterDelay)
			s.deliver(s.after)
		}()
	}

	if s.navBlock {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.navErr
}

func (s *fakeSession) deliver(rs []browser.Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fn == nil || s.stopped {
		return
	}
	for _, r := range rs {
		if s.match(r.URL) {
			s.fn(r)
		}
	}
}

func (s *fakeSession) HTML(ctx context.Context) (string, error) {
	return s.html, s.htmlErr
}

func (s *fakeSession) ObserveResponses(ctx context.Context, match func(string) bool, fn func(browser.Response)) (func(), error) {
	s.mu.Lock()
	s.match = match
	s.fn = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
	}, nil
}

func (s *fakeSession) Close() error {
	s.closed.Add(1)
	return nil
}

func jsonResponse(url, body string) browser.Response {
	return browser.NewResponse(url, 200, "application/json", func() ([]byte, error) {
		return []byte(body), nil
	})
}
