package service

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"shahid/internal/audit"
	"shahid/internal/payments/gateway"
	"shahid/internal/payments/models"
	"shahid/internal/payments/store/method"
	"shahid/internal/payments/store/subscription"
	"shahid/internal/payments/store/transaction"
	id "shahid/pkg/domain"
	dErrors "shahid/pkg/domain-errors"
	"shahid/pkg/requestcontext"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

func (p *recordingPublisher) Emit(ctx context.Context, event audit.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) has(action audit.Action) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.events {
		if e.Action == action {
			return true
		}
	}
	return false
}

// fakeGateway scripts provider behavior per call.
type fakeGateway struct {
	name    string
	decline bool
	outage  bool

	charges  int
	refunds  int
	cancels  int
	seq      int
	lastRefs []string
}

func (g *fakeGateway) Name() string { return g.name }

func (g *fakeGateway) fail() error {
	if g.decline {
		return &gateway.Error{Gateway: g.name, Code: "card_declined", Message: "card was declined", HTTPStatus: 402}
	}
	return &gateway.Error{Gateway: g.name, Code: "api_error", Message: "provider down", HTTPStatus: 503}
}

func (g *fakeGateway) ref(prefix string) string {
	g.seq++
	ref := prefix + "_" + g.name + "_" + strconv.Itoa(g.seq)
	g.lastRefs = append(g.lastRefs, ref)
	return ref
}

func (g *fakeGateway) CreatePaymentMethod(ctx context.Context, req gateway.CreateMethodRequest) (*gateway.MethodResult, error) {
	if g.decline || g.outage {
		return nil, g.fail()
	}
	return &gateway.MethodResult{
		ProviderRef: g.ref("pm"),
		CardLast4:   "4242",
		CardBrand:   "visa",
		ExpMonth:    12,
		ExpYear:     time.Now().Year() + 2,
	}, nil
}

func (g *fakeGateway) Charge(ctx context.Context, req gateway.ChargeRequest) (*gateway.ChargeResult, error) {
	if g.decline || g.outage {
		return nil, g.fail()
	}
	g.charges++
	return &gateway.ChargeResult{ProviderRef: g.ref("ch"), Captured: true}, nil
}

func (g *fakeGateway) CreateSubscription(ctx context.Context, req gateway.SubscriptionRequest) (*gateway.SubscriptionResult, error) {
	if g.decline || g.outage {
		return nil, g.fail()
	}
	return &gateway.SubscriptionResult{ProviderRef: g.ref("sub"), PeriodEnd: time.Now().AddDate(0, 1, 0)}, nil
}

func (g *fakeGateway) CancelSubscription(ctx context.Context, providerRef string) error {
	if g.outage {
		return g.fail()
	}
	g.cancels++
	return nil
}

func (g *fakeGateway) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error) {
	if g.outage {
		return nil, g.fail()
	}
	g.refunds++
	return &gateway.RefundResult{ProviderRef: g.ref("re")}, nil
}

type PaymentsSuite struct {
	suite.Suite
	svc       *Service
	gw        *fakeGateway
	txs       *transaction.MemoryStore
	publisher *recordingPublisher
	ctx       context.Context
	userID    id.UserID
}

func (s *PaymentsSuite) SetupTest() {
	s.gw = &fakeGateway{name: "stripe"}
	s.txs = transaction.NewMemoryStore()
	s.publisher = &recordingPublisher{}
	s.svc = New(
		method.NewMemoryStore(),
		s.txs,
		subscription.NewMemoryStore(),
		map[string]gateway.Gateway{"stripe": s.gw},
		"stripe",
		WithAuditPublisher(s.publisher),
	)
	s.userID = id.NewUserID()
	ctx := requestcontext.WithUserID(context.Background(), s.userID)
	s.ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.10", "test")
}

func (s *PaymentsSuite) SetupSubTest() {
	s.SetupTest()
}

func TestPaymentsSuite(t *testing.T) {
	suite.Run(t, new(PaymentsSuite))
}

func (s *PaymentsSuite) addCard() *models.PaymentMethod {
	m, err := s.svc.AddMethod(s.ctx, AddMethodInput{Type: "credit_card", Token: "tok_visa"})
	s.Require().NoError(err)
	return m
}

func (s *PaymentsSuite) TestMethods() {
	s.Run("first method becomes the default", func() {
		m := s.addCard()
		s.True(m.Default)
		s.Equal("4242", m.CardLast4)
		s.Equal("stripe", m.Gateway)
	})

	s.Run("making another method default clears the previous", func() {
		first := s.addCard()
		second, err := s.svc.AddMethod(s.ctx, AddMethodInput{Type: "credit_card", Token: "tok_mc", MakeDefault: true})
		s.Require().NoError(err)
		s.True(second.Default)

		methods, err := s.svc.ListMethods(s.ctx)
		s.Require().NoError(err)
		defaults := 0
		for _, m := range methods {
			if m.Default {
				defaults++
				s.Equal(second.ID, m.ID)
			}
		}
		s.Equal(1, defaults)
		_ = first
	})

	s.Run("rejects an unknown method type", func() {
		_, err := s.svc.AddMethod(s.ctx, AddMethodInput{Type: "crypto", Token: "tok"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("removal deactivates and blocks charging", func() {
		m := s.addCard()
		s.Require().NoError(s.svc.RemoveMethod(s.ctx, m.ID))

		_, err := s.svc.Charge(s.ctx, ChargeInput{MethodID: &m.ID, Type: "payment", Amount: 1000, Currency: "USD"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("another user's method stays hidden", func() {
		m := s.addCard()
		stranger := requestcontext.WithUserID(context.Background(), id.NewUserID())
		_, err := s.svc.SetDefaultMethod(stranger, m.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *PaymentsSuite) TestCharge() {
	s.Run("successful charge completes and audits", func() {
		s.addCard()
		tx, err := s.svc.Charge(s.ctx, ChargeInput{Type: "payment", Amount: 2500, Currency: "USD", Description: "archive support"})
		s.Require().NoError(err)
		s.Equal(models.TxCompleted, tx.Status)
		s.NotEmpty(tx.ProviderRef)
		s.NotNil(tx.CompletedAt)
		s.True(s.publisher.has(audit.ActionPaymentAttempt))
		s.True(s.publisher.has(audit.ActionPaymentSucceeded))
	})

	s.Run("decline marks the transaction failed", func() {
		s.addCard()
		s.gw.decline = true
		defer func() { s.gw.decline = false }()

		_, err := s.svc.Charge(s.ctx, ChargeInput{Type: "donation", Amount: 500, Currency: "USD"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
		s.True(s.publisher.has(audit.ActionPaymentFailed))

		txs, listErr := s.svc.ListTransactions(s.ctx, 10, 0)
		s.Require().NoError(listErr)
		s.Require().NotEmpty(txs)
		s.Equal(models.TxFailed, txs[0].Status)
	})

	s.Run("provider outage maps to unavailable", func() {
		s.addCard()
		s.gw.outage = true
		defer func() { s.gw.outage = false }()

		_, err := s.svc.Charge(s.ctx, ChargeInput{Type: "payment", Amount: 500, Currency: "USD"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("charging without a default method fails", func() {
		fresh := requestcontext.WithUserID(context.Background(), id.NewUserID())
		_, err := s.svc.Charge(fresh, ChargeInput{Type: "payment", Amount: 500, Currency: "USD"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects invalid amounts and currencies", func() {
		s.addCard()
		_, err := s.svc.Charge(s.ctx, ChargeInput{Type: "payment", Amount: 0, Currency: "USD"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.svc.Charge(s.ctx, ChargeInput{Type: "payment", Amount: 100, Currency: "usd"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("transactions are hidden from other users", func() {
		s.addCard()
		tx, err := s.svc.Charge(s.ctx, ChargeInput{Type: "payment", Amount: 100, Currency: "USD"})
		s.Require().NoError(err)

		stranger := requestcontext.WithUserID(context.Background(), id.NewUserID())
		_, err = s.svc.GetTransaction(stranger, tx.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *PaymentsSuite) TestRefund() {
	s.Run("refunds a completed charge", func() {
		s.addCard()
		tx, err := s.svc.Charge(s.ctx, ChargeInput{Type: "payment", Amount: 3000, Currency: "USD"})
		s.Require().NoError(err)

		refund, err := s.svc.Refund(s.ctx, tx.ID)
		s.Require().NoError(err)
		s.Equal(models.TxRefund, refund.Type)
		s.Equal(models.TxCompleted, refund.Status)
		s.Equal(tx.Amount, refund.Amount)
		s.True(s.publisher.has(audit.ActionRefundRequested))

		original, err := s.svc.GetTransaction(s.ctx, tx.ID)
		s.Require().NoError(err)
		s.Equal(models.TxRefunded, original.Status)
	})

	s.Run("a refunded transaction cannot be refunded again", func() {
		s.addCard()
		tx, err := s.svc.Charge(s.ctx, ChargeInput{Type: "payment", Amount: 1000, Currency: "USD"})
		s.Require().NoError(err)
		_, err = s.svc.Refund(s.ctx, tx.ID)
		s.Require().NoError(err)

		_, err = s.svc.Refund(s.ctx, tx.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *PaymentsSuite) TestSubscriptions() {
	s.Run("subscribe, inspect, cancel", func() {
		s.addCard()
		sub, err := s.svc.Subscribe(s.ctx, "premium", nil)
		s.Require().NoError(err)
		s.Equal(models.PlanPremium, sub.Plan)
		s.Equal(models.PlanPremium.Price(), sub.MonthlyPrice)
		s.True(sub.IsActive())
		s.True(s.publisher.has(audit.ActionSubscriptionCreated))

		mine, err := s.svc.MySubscription(s.ctx)
		s.Require().NoError(err)
		s.Equal(sub.ID, mine.ID)

		cancelled, err := s.svc.CancelSubscription(s.ctx)
		s.Require().NoError(err)
		s.Equal(models.SubCancelled, cancelled.Status)
		s.NotNil(cancelled.CancelledAt)
		s.Equal(1, s.gw.cancels)
		s.True(s.publisher.has(audit.ActionSubscriptionCancelled))
	})

	s.Run("a second active subscription conflicts", func() {
		s.addCard()
		_, err := s.svc.Subscribe(s.ctx, "basic", nil)
		s.Require().NoError(err)

		_, err = s.svc.Subscribe(s.ctx, "pro", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("resubscribing reactivates the same row", func() {
		s.addCard()
		first, err := s.svc.Subscribe(s.ctx, "basic", nil)
		s.Require().NoError(err)
		_, err = s.svc.CancelSubscription(s.ctx)
		s.Require().NoError(err)

		second, err := s.svc.Subscribe(s.ctx, "pro", nil)
		s.Require().NoError(err)
		s.Equal(first.ID, second.ID)
		s.Equal(models.PlanPro, second.Plan)
		s.True(second.IsActive())
		s.Nil(second.CancelledAt)
	})

	s.Run("unknown plan is rejected", func() {
		s.addCard()
		_, err := s.svc.Subscribe(s.ctx, "platinum", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("cancelling without a subscription is not found", func() {
		fresh := requestcontext.WithUserID(context.Background(), id.NewUserID())
		_, err := s.svc.CancelSubscription(fresh)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *PaymentsSuite) TestWebhooks() {
	s.Run("completes a processing transaction by provider ref", func() {
		s.addCard()
		tx, err := s.svc.Charge(s.ctx, ChargeInput{Type: "payment", Amount: 100, Currency: "USD"})
		s.Require().NoError(err)

		// Simulate a gateway that settles asynchronously.
		_, err = s.txs.Execute(s.ctx, tx.ID,
			func(*models.Transaction) error { return nil },
			func(t *models.Transaction) { t.Status = models.TxProcessing; t.CompletedAt = nil },
		)
		s.Require().NoError(err)

		err = s.svc.HandleWebhook(s.ctx, "stripe", WebhookEvent{Type: "payment.completed", ProviderRef: tx.ProviderRef})
		s.Require().NoError(err)

		settled, err := s.svc.GetTransaction(s.ctx, tx.ID)
		s.Require().NoError(err)
		s.Equal(models.TxCompleted, settled.Status)
		s.True(s.publisher.has(audit.ActionWebhookReceived))
	})

	s.Run("unknown provider ref is acknowledged, not an error", func() {
		err := s.svc.HandleWebhook(s.ctx, "stripe", WebhookEvent{Type: "payment.completed", ProviderRef: "ch_missing"})
		s.NoError(err)
	})

	s.Run("renewal extends the subscription period", func() {
		s.addCard()
		sub, err := s.svc.Subscribe(s.ctx, "basic", nil)
		s.Require().NoError(err)

		newEnd := sub.CurrentPeriodEnd.AddDate(0, 1, 0)
		err = s.svc.HandleWebhook(s.ctx, "stripe", WebhookEvent{
			Type:        "subscription.renewed",
			ProviderRef: sub.ProviderRef,
			PeriodEnd:   newEnd,
		})
		s.Require().NoError(err)

		renewed, err := s.svc.MySubscription(s.ctx)
		s.Require().NoError(err)
		s.Equal(newEnd, renewed.CurrentPeriodEnd)
	})

	s.Run("suspension marks the subscription", func() {
		s.addCard()
		sub, err := s.svc.Subscribe(s.ctx, "basic", nil)
		s.Require().NoError(err)

		err = s.svc.HandleWebhook(s.ctx, "stripe", WebhookEvent{Type: "subscription.suspended", ProviderRef: sub.ProviderRef})
		s.Require().NoError(err)

		suspended, err := s.svc.MySubscription(s.ctx)
		s.Require().NoError(err)
		s.Equal(models.SubSuspended, suspended.Status)
	})

	s.Run("unrecognized event types are ignored", func() {
		err := s.svc.HandleWebhook(s.ctx, "stripe", WebhookEvent{Type: "invoice.finalized", ProviderRef: "x"})
		s.NoError(err)
	})
}
