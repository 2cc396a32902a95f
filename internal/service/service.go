package service

import (
	"go.uber.org/zap"

	"github.com/streamreact/companion/internal/auth"
	"github.com/streamreact/companion/internal/config"
	"github.com/streamreact/companion/internal/ledger"
	"github.com/streamreact/companion/internal/metrics"
	"github.com/streamreact/companion/internal/repository"
	"github.com/streamreact/companion/internal/session"
	"github.com/streamreact/companion/internal/trigger"
)

// Broadcaster is the fan-out the pipeline delivers outbound frames through.
type Broadcaster interface {
	BroadcastJSON(v interface{}) error
	SendJSONToConnection(connID string, v interface{}) error
	SendJSONToRoom(room, except string, v interface{}) (int, error)
	Join(connID, room string) error
	Leave(connID, room string)
}

type Service struct {
	store    store.Store
	ledger   *ledger.Ledger
	sessions session.Registry
	triggers *trigger.Cache
	verifier auth.Verifier
	out      Broadcaster
	config   *config.Config
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func New(store store.Store, ledger *ledger.Ledger, sessions session.Registry, verifier auth.Verifier, out Broadcaster, cfg *config.Config, m *metrics.Metrics, log *zap.Logger) *Service {
	return &Service{
		store:    store,
		ledger:   ledger,
		sessions: sessions,
		triggers: trigger.NewCache(store, log),
		verifier: verifier,
		out:      out,
		config:   cfg,
		metrics:  m,
		log:      log,
	}
}

// Sessions exposes the registry for connection lifecycle bookkeeping.
func (s *Service) Sessions() session.Registry {
	return s.sessions
}

// Triggers exposes the trigger snapshot so the owner can keep it fresh.
func (s *Service) Triggers() *trigger.Cache {
	return s.triggers
}

// Verifier exposes the identity verifier for HTTP bearer auth.
func (s *Service) Verifier() auth.Verifier {
	return s.verifier
}
