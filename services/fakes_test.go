package services

import (
	"context"
	"net/http"
	"sync"

	"github.com/Govind-619/FarmMart/events"
	"github.com/Govind-619/FarmMart/mpesa"
)

type fakeGateway struct {
	mu     sync.Mutex
	ack    *mpesa.STKPushResponse
	err    error
	calls  int
	ref    string
	phone  string
	amount int64
}

func newAckGateway(merchantID, checkoutID string) *fakeGateway {
	raw := `{"MerchantRequestID":"` + merchantID + `","CheckoutRequestID":"` + checkoutID +
		`","ResponseCode":"0","ResponseDescription":"Accepted","CustomerMessage":"Success"}`
	return &fakeGateway{ack: &mpesa.STKPushResponse{
		MerchantRequestID:   merchantID,
		CheckoutRequestID:   checkoutID,
		ResponseCode:        "0",
		ResponseDescription: "Accepted",
		CustomerMessage:     "Success",
		StatusCode:          http.StatusOK,
		Raw:                 []byte(raw),
	}}
}

func (g *fakeGateway) STKPush(ctx context.Context, orderRef, phone string, amount int64) (*mpesa.STKPushResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.ref, g.phone, g.amount = orderRef, phone, amount
	if g.err != nil {
		return nil, g.err
	}
	return g.ack, nil
}

// blockingGateway holds each push until release is closed.
type blockingGateway struct {
	*fakeGateway
	entered chan struct{}
	release chan struct{}
}

func newBlockingGateway(merchantID, checkoutID string) *blockingGateway {
	return &blockingGateway{
		fakeGateway: newAckGateway(merchantID, checkoutID),
		entered:     make(chan struct{}, 8),
		release:     make(chan struct{}),
	}
}

func (g *blockingGateway) STKPush(ctx context.Context, orderRef, phone string, amount int64) (*mpesa.STKPushResponse, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.fakeGateway.STKPush(ctx, orderRef, phone, amount)
}

type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []events.PaymentEvent
	err    error
}

func (p *recordingPublisher) Publish(routingKey string, msg any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	if evt, ok := msg.(events.PaymentEvent); ok {
		p.events = append(p.events, evt)
	}
	return p.err
}

type sentMail struct {
	to, subject, body string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
