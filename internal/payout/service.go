package payout

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rif/cache2go"
	"github.com/rs/zerolog"

	"github.com/vaultline/vaultline/internal/apperr"
	"github.com/vaultline/vaultline/internal/identity"
)

var routingNumberPattern = regexp.MustCompile(`^[0-9]{9}$`)

// Service reads and writes the payout instructions through a short-lived cache.
type Service struct {
	repo  Repository
	cache *cache2go.Cache
	log   zerolog.Logger
	now   func() time.Time

	// writes counts saves. A read that overlapped a save is not cached.
	mu     sync.Mutex
	writes uint64
}

// NewService builds the payout service. Reads are cached for cacheTTL.
func NewService(repo Repository, cacheTTL time.Duration, baseLogger zerolog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache2go.New(1, cacheTTL),
		log:   baseLogger.With().Str("component", "payout").Logger(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the current instructions. found is false when none have been saved yet.
func (s *Service) Get(ctx context.Context) (inst Instructions, found bool, err error) {
	if cached, ok := s.cache.Get(singletonKey); ok {
		return cached.(Instructions), true, nil
	}
	before := s.writeCount()
	inst, err = s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Instructions{}, false, nil
		}
		return Instructions{}, false, apperr.Unexpected(err)
	}

	s.mu.Lock()
	if s.writes == before {
		s.cache.Set(singletonKey, inst)
	}
	s.mu.Unlock()
	return inst, true, nil
}

// Save replaces the instructions after validating them.
func (s *Service) Save(ctx context.Context, inst Instructions) (Instructions, error) {
	inst, err := normalize(inst)
	if err != nil {
		return Instructions{}, err
	}
	inst.UpdatedAt = s.now()

	s.bumpWrites()
	saved, err := s.repo.Upsert(ctx, inst)
	s.bumpWrites()
	if err != nil {
		return Instructions{}, apperr.Unexpected(err)
	}
	s.log.Info().Msg("payout instructions updated")
	return saved, nil
}

func (s *Service) writeCount() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// bumpWrites records a save and drops the cached record.
func (s *Service) bumpWrites() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.cache.Delete(singletonKey)
}

func normalize(inst Instructions) (Instructions, error) {
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"Zelle email", &inst.ZelleEmail},
		{"CashApp email", &inst.CashAppEmail},
		{"Chime email", &inst.ChimeEmail},
	} {
		*f.value = identity.NormalizeEmail(*f.value)
		if *f.value != "" && !identity.ValidEmail(*f.value) {
			return Instructions{}, apperr.Validation(f.name + " is not a valid email")
		}
	}
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"Zelle phone", &inst.ZellePhone},
		{"Chime phone", &inst.ChimePhone},
	} {
		raw := strings.TrimSpace(*f.value)
		if raw == "" {
			*f.value = ""
			continue
		}
		if identity.NormalizePhone(raw) == "" {
			return Instructions{}, apperr.Validation(f.name + " is not a valid phone number")
		}
		*f.value = raw
	}

	inst.CashAppUsername = strings.TrimSpace(inst.CashAppUsername)
	inst.ChimeAccountName = strings.TrimSpace(inst.ChimeAccountName)
	inst.ChimeAccountNumber = strings.TrimSpace(inst.ChimeAccountNumber)
	inst.ChimeRoutingNumber = strings.TrimSpace(inst.ChimeRoutingNumber)
	if inst.ChimeRoutingNumber != "" && !routingNumberPattern.MatchString(inst.ChimeRoutingNumber) {
		return Instructions{}, apperr.Validation("Chime routing number must be 9 digits")
	}
	return inst, nil
}
