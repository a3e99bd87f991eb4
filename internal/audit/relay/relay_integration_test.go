//go:build integration

package relay

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"shahid/internal/audit"
	auditpg "shahid/internal/audit/store/postgres"
	"shahid/internal/platform/config"
	id "shahid/pkg/domain"
	"shahid/pkg/testutil/containers"
)

type RelaySuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	kafka *containers.KafkaContainer
	store *auditpg.Store
	cfg   config.KafkaConfig
}

func TestRelaySuite(t *testing.T) {
	suite.Run(t, new(RelaySuite))
}

func (s *RelaySuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.kafka = containers.NewKafkaContainer(s.T())
	s.store = auditpg.New(s.pg.SQL)
	s.cfg = config.KafkaConfig{
		Brokers:       []string{s.kafka.Broker},
		AuditTopic:    "shahid.audit.test",
		RelayInterval: 100 * time.Millisecond,
		RelayBatch:    10,
	}
}

// TestOutboxRoundTrip appends an event, lets the relay ship it, and reads it
// back off the topic.
func (s *RelaySuite) TestOutboxRoundTrip() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	relay, err := New(ctx, s.pg.SQL, s.cfg, logger, nil)
	s.Require().NoError(err)
	s.Require().NotNil(relay)

	event := audit.Event{
		Timestamp: time.Now().UTC(),
		ActorID:   id.NewUserID(),
		Action:    audit.ActionIPBanned,
		Reason:    "integration",
		Metadata:  map[string]string{"banned_ip": "203.0.113.9"},
	}
	s.Require().NoError(s.store.Append(ctx, event))

	relayCtx, stopRelay := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = relay.Run(relayCtx)
	}()

	// Wait for the outbox row to be marked published.
	deadline := time.Now().Add(10 * time.Second)
	for {
		var unpublished int
		err := s.pg.SQL.QueryRowContext(ctx,
			`SELECT count(*) FROM outbox WHERE published_at IS NULL`).Scan(&unpublished)
		s.Require().NoError(err)
		if unpublished == 0 {
			break
		}
		if time.Now().After(deadline) {
			s.FailNow("outbox row was never published")
		}
		time.Sleep(100 * time.Millisecond)
	}
	stopRelay()
	<-done

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.kafka.Broker),
		kgo.ConsumeTopics(s.cfg.AuditTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetchCtx, fetchCancel := context.WithTimeout(ctx, 10*time.Second)
	defer fetchCancel()
	fetches := consumer.PollFetches(fetchCtx)
	s.Require().NoError(fetches.Err())

	records := fetches.Records()
	s.Require().NotEmpty(records)
	s.Contains(string(records[0].Value), "ip_banned")
}
