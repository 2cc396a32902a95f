package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/streamreact/companion/internal/auth"
	"github.com/streamreact/companion/internal/config"
	"github.com/streamreact/companion/internal/domain"
	"github.com/streamreact/companion/internal/hub"
	"github.com/streamreact/companion/internal/ledger"
	"github.com/streamreact/companion/internal/metrics"
	"github.com/streamreact/companion/internal/protocol"
	"github.com/streamreact/companion/internal/repository"
	"github.com/streamreact/companion/internal/session"
	"github.com/streamreact/companion/tests/helpers"
)

var errInjected = errors.New("disk on fire")

// flakyStore fails selected operations on top of a real SQLite store.
type flakyStore struct {
	*store.SQLiteStore
	failMessages  bool
	failDonations bool
	failTriggers  bool
	failPurchases bool
	triggerReads  atomic.Int32
}

func (s *flakyStore) CreateMessage(ctx context.Context, m *domain.ChatMessage) error {
	if s.failMessages {
		return errInjected
	}
	return s.SQLiteStore.CreateMessage(ctx, m)
}

func (s *flakyStore) CreateDonation(ctx context.Context, d *domain.Donation) error {
	if s.failDonations {
		return errInjected
	}
	return s.SQLiteStore.CreateDonation(ctx, d)
}

func (s *flakyStore) ListTriggers(ctx context.Context, activeOnly bool) ([]domain.Trigger, error) {
	s.triggerReads.Add(1)
	if s.failTriggers {
		return nil, errInjected
	}
	return s.SQLiteStore.ListTriggers(ctx, activeOnly)
}

func (s *flakyStore) CreatePurchase(ctx context.Context, p *domain.Purchase) error {
	if s.failPurchases {
		return errInjected
	}
	return s.SQLiteStore.CreatePurchase(ctx, p)
}

type fixture struct {
	svc      *Service
	hub      *hub.Hub
	store    *flakyStore
	ledger   *ledger.Ledger
	sessions *session.ShardedRegistry
	verifier *auth.JWTVerifier
}

func newFixture(t *testing.T, balance, max int64) *fixture {
	t.Helper()

	st := &flakyStore{SQLiteStore: helpers.NewTestSQLiteStore(t)}
	l, err := ledger.New(decimal.NewFromInt(balance), decimal.NewFromInt(max))
	require.NoError(t, err)
	require.NoError(t, st.SetBalances(context.Background(), decimal.NewFromInt(balance), decimal.NewFromInt(max), ""))

	h := hub.NewHub(zap.NewNop())
	sessions := session.NewRegistry()
	verifier := auth.NewJWTVerifier("test-secret", time.Hour)
	cfg := &config.Config{ChatMaxLength: 20}

	return &fixture{
		svc:      New(st, l, sessions, verifier, h, cfg, metrics.New(), zap.NewNop()),
		hub:      h,
		store:    st,
		ledger:   l,
		sessions: sessions,
		verifier: verifier,
	}
}

func (f *fixture) connect() *hub.Connection {
	conn := f.hub.NewConnection(nil)
	f.hub.Register(conn)
	f.sessions.RegisterID(conn.ID)
	return conn
}

func (f *fixture) login(t *testing.T, conn *hub.Connection, identity domain.Identity) {
	t.Helper()
	token, err := f.verifier.Issue(identity)
	require.NoError(t, err)
	require.NoError(t, f.svc.Dispatch(context.Background(), conn.ID, protocol.Authenticate{Token: token}))
	frames := drain(conn)
	require.Len(t, frames, 1)
	require.Equal(t, protocol.EventAuthenticated, frames[0].Event)
}

func (f *fixture) addTrigger(t *testing.T, keyword, category string, priority int) {
	t.Helper()
	require.NoError(t, f.store.CreateTrigger(context.Background(), &domain.Trigger{
		Keyword:  keyword,
		VideoURL: "/videos/" + category + ".mp4",
		Category: category,
		Priority: priority,
		Active:   true,
	}))
	require.NoError(t, f.svc.Triggers().Refresh(context.Background()))
}

func drain(conn *hub.Connection) []protocol.Envelope {
	var out []protocol.Envelope
	for {
		select {
		case msg, ok := <-conn.Send:
			if !ok {
				return out
			}
			var env protocol.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				panic(err)
			}
			out = append(out, env)
		default:
			return out
		}
	}
}

func events(frames []protocol.Envelope) []string {
	names := make([]string, 0, len(frames))
	for _, f := range frames {
		names = append(names, f.Event)
	}
	return names
}

func alice() domain.Identity {
	return domain.Identity{ID: "u1", Username: "alice", Email: "alice@example.com", Role: domain.RoleUser}
}

func bob() domain.Identity {
	return domain.Identity{ID: "u2", Username: "bob", Email: "bob@example.com", Role: domain.RoleUser}
}

func admin() domain.Identity {
	return domain.Identity{ID: "a1", Username: "root", Email: "root@example.com", Role: domain.RoleAdmin}
}
