package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// observerQueue bounds finished responses waiting for the consumer.
const observerQueue = 32

// ObserveResponses listens on the Network domain. A matching response is
// remembered when its headers arrive and handed to fn once its body has
// finished loading, because the body cannot be read before then. Delivery
// order is therefore body completion order: a small response that finishes
// early is seen before a larger one whose headers arrived first.
//
// Events are delivered by rod on a single goroutine, so pending needs no lock.
// fn runs on a separate consumer goroutine so body fetches never stall the
// event stream.
func (s *rodSession) ObserveResponses(ctx context.Context, match func(string) bool, fn func(Response)) (func(), error) {
	if err := (proto.NetworkEnable{}).Call(s.page); err != nil {
		return nil, fmt.Errorf("enable network domain: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	p := s.page.Context(ctx)

	pending := make(map[proto.NetworkRequestID]*proto.NetworkResponse)
	queue := make(chan Response, observerQueue)

	wait := p.EachEvent(
		func(e *proto.NetworkResponseReceived) {
			if e.Response != nil && match(e.Response.URL) {
				pending[e.RequestID] = e.Response
			}
		},
		func(e *proto.NetworkLoadingFinished) {
			resp, ok := pending[e.RequestID]
			if !ok {
				return
			}
			delete(pending, e.RequestID)
			select {
			case queue <- newRodResponse(p, e.RequestID, resp):
			case <-ctx.Done():
			}
		},
		func(e *proto.NetworkLoadingFailed) {
			delete(pending, e.RequestID)
		},
	)
	go wait()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case r := <-queue:
				fn(r)
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}
	return stop, nil
}

func newRodResponse(p *rod.Page, id proto.NetworkRequestID, resp *proto.NetworkResponse) Response {
	return NewResponse(resp.URL, resp.Status, resp.MIMEType, func() ([]byte, error) {
		res, err := proto.NetworkGetResponseBody{RequestID: id}.Call(p)
		if err != nil {
			return nil, fmt.Errorf("get response body: %w", err)
		}
		if res.Base64Encoded {
			return base64.StdEncoding.DecodeString(res.Body)
		}
		return []byte(res.Body), nil
	})
}
