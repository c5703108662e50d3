// Package participants manages the research participants linked to the
// signed-in user, with an offline copy per user and the hasParticipant flags
// the access flow reads.
package participants

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"vocalize/internal/api"
	"vocalize/internal/apierr"
	"vocalize/internal/cache"
	"vocalize/internal/connectivity"
	"vocalize/internal/logging"
	"vocalize/internal/vault"
)

const (
	KeyHasParticipant = "hasParticipant"
	KeyParticipantID  = "participantId"
	// UserKeyPrefix prefixes the per-user participant list.
	UserKeyPrefix = "user_participantes_"

	basePath = "/participantes"
)

// UserKey is the cache key for userID's participants.
func UserKey(userID string) string { return UserKeyPrefix + userID }

// Service lists and edits participants.
type Service struct {
	client  *api.Client
	vault   *vault.Vault
	cache   *cache.Cache
	fetcher *cache.Fetcher[Participant]
	logger  *slog.Logger
}

// New builds a Service on the authenticated client.
func New(client *api.Client, c *cache.Cache, checker connectivity.Checker, logger *slog.Logger) *Service {
	return &Service{
		client:  client,
		vault:   client.Vault(),
		cache:   c,
		fetcher: cache.NewFetcher[Participant](c, checker, "participants"),
		logger:  logging.NewComponentLogger(logger, "participants"),
	}
}

// ListByUser returns userID's participants and records whether any exist.
func (s *Service) ListByUser(ctx context.Context, userID string, force bool) ([]Participant, error) {
	if userID == "" {
		return nil, apierr.New(apierr.KindValidation, "ID do usuário não fornecido")
	}
	list, err := s.fetcher.Load(ctx, UserKey(userID), force, func(ctx context.Context) ([]Participant, error) {
		var out []Participant
		if err := s.client.Get(ctx, fmt.Sprintf("%s/usuario/%s", basePath, userID), nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	s.recordFlags(ctx, list)
	return list, nil
}

// Get returns one participant, asking the server first and falling back to
// the signed-in user's cached list.
func (s *Service) Get(ctx context.Context, id int64) (Participant, error) {
	var remoteErr error
	if s.fetcher.Online(ctx) {
		var p Participant
		remoteErr = s.client.Get(ctx, fmt.Sprintf("%s/%d", basePath, id), nil, &p)
		if remoteErr == nil {
			return p, nil
		}
		s.logger.Debug("remote lookup failed, trying cache",
			logging.Int64("participant_id", id),
			logging.Error(remoteErr),
		)
	}

	userID, err := s.vault.UserID(ctx)
	if err == nil && userID != "" {
		entry, ok, err := cache.Read[Participant](ctx, s.cache, UserKey(userID))
		if err == nil && ok {
			if p, found := cache.Find(entry.Data, strconv.FormatInt(id, 10)); found {
				return p, nil
			}
		}
	}

	const notFound = "Participante não encontrado no armazenamento local"
	if remoteErr != nil && !apierr.IsKind(remoteErr, apierr.KindNetworkUnavailable) {
		return Participant{}, apierr.Wrap(apierr.KindOf(remoteErr), notFound, remoteErr)
	}
	return Participant{}, apierr.Wrap(apierr.KindNetworkUnavailable, notFound, remoteErr)
}

// All lists every participant. It is not cached.
func (s *Service) All(ctx context.Context) ([]Participant, error) {
	var out []Participant
	if err := s.client.Get(ctx, basePath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create registers a participant and makes it the current one.
func (s *Service) Create(ctx context.Context, payload Payload) (Participant, error) {
	var created Participant
	if err := s.client.Post(ctx, basePath, payload, &created); err != nil {
		return Participant{}, err
	}
	s.setCurrent(ctx, created.CacheID())

	if key, ok := s.userKey(ctx, "create"); ok {
		if err := cache.Append(ctx, s.cache, key, created); err != nil {
			s.warnCache("create", key, err)
		}
	}
	s.logger.Info("participant created",
		logging.String(logging.FieldEventType, "participant_created"),
		logging.Int64("participant_id", created.ID),
	)
	return created, nil
}

// Update changes a participant's fields and makes it the current one.
func (s *Service) Update(ctx context.Context, id int64, payload Payload) error {
	if err := s.client.Patch(ctx, fmt.Sprintf("%s/%d", basePath, id), payload, nil); err != nil {
		return err
	}
	cacheID := strconv.FormatInt(id, 10)
	s.setCurrent(ctx, cacheID)

	if key, ok := s.userKey(ctx, "update"); ok {
		_, err := cache.Patch(ctx, s.cache, key, cache.ReplaceByID(cacheID, func(p Participant) Participant {
			merged, err := p.Merge(payload)
			if err != nil {
				s.warnCache("update", key, err)
				return p
			}
			return merged
		}))
		if err != nil {
			s.warnCache("update", key, err)
		}
	}
	return nil
}

// Delete removes a participant. When the cached list becomes empty the user
// is marked as having none.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.client.Delete(ctx, fmt.Sprintf("%s/%d", basePath, id)); err != nil {
		return err
	}
	cacheID := strconv.FormatInt(id, 10)
	store := s.cache.Store()

	remove := []string{KeyHasParticipant}
	if current, _, err := store.Get(ctx, KeyParticipantID); err == nil && current == cacheID {
		remove = append(remove, KeyParticipantID)
	}
	if err := store.MultiRemove(ctx, remove...); err != nil {
		s.warnFlags(err)
	}

	key, ok := s.userKey(ctx, "delete")
	if !ok {
		return nil
	}
	remaining := -1
	_, err := cache.Patch(ctx, s.cache, key, func(data []Participant) []Participant {
		out := cache.RemoveByID[Participant](cacheID)(data)
		remaining = len(out)
		return out
	})
	if err != nil {
		s.warnCache("delete", key, err)
		return nil
	}
	if remaining == 0 {
		if err := store.Set(ctx, KeyHasParticipant, "false"); err != nil {
			s.warnFlags(err)
		}
	}
	return nil
}

// Exists reports whether the signed-in user has a participant, trusting the
// stored flags before asking the server.
func (s *Service) Exists(ctx context.Context) bool {
	store := s.cache.Store()
	has, _, err := store.Get(ctx, KeyHasParticipant)
	if err != nil {
		s.warnFlags(err)
		return false
	}
	current, _, _ := store.Get(ctx, KeyParticipantID)
	if has == "true" && current != "" {
		return true
	}
	if has == "false" {
		return false
	}

	userID, err := s.vault.UserID(ctx)
	if err != nil || userID == "" {
		return false
	}
	list, err := s.ListByUser(ctx, userID, false)
	if err != nil {
		s.logger.Debug("participant check failed", logging.Error(err))
		return false
	}
	return len(list) > 0
}

func (s *Service) recordFlags(ctx context.Context, list []Participant) {
	store := s.cache.Store()
	var err error
	if len(list) > 0 {
		err = store.MultiSet(ctx, map[string]string{
			KeyHasParticipant: "true",
			KeyParticipantID:  list[0].CacheID(),
		})
	} else {
		if err = store.Set(ctx, KeyHasParticipant, "false"); err == nil {
			err = store.Remove(ctx, KeyParticipantID)
		}
	}
	if err != nil {
		s.warnFlags(err)
	}
}

func (s *Service) setCurrent(ctx context.Context, id string) {
	err := s.cache.Store().MultiSet(ctx, map[string]string{
		KeyHasParticipant: "true",
		KeyParticipantID:  id,
	})
	if err != nil {
		s.warnFlags(err)
	}
}

// userKey resolves the signed-in user's list key at call time.
func (s *Service) userKey(ctx context.Context, op string) (string, bool) {
	userID, err := s.vault.UserID(ctx)
	if err != nil || userID == "" {
		logging.WarnWithContext(s.logger, "no signed-in user, cache not patched", "cache_patch_skipped",
			logging.String("operation", op),
			logging.Error(err),
			logging.String(logging.FieldImpact, "participant list refreshes on the next fetch"),
		)
		return "", false
	}
	return UserKey(userID), true
}

func (s *Service) warnCache(op, key string, err error) {
	logging.WarnWithContext(s.logger, "cache patch failed", "cache_patch_failed",
		logging.String("operation", op),
		logging.String(logging.FieldCacheKey, key),
		logging.Error(err),
		logging.String(logging.FieldImpact, "participant list refreshes on the next forced fetch"),
	)
}

func (s *Service) warnFlags(err error) {
	logging.WarnWithContext(s.logger, "participant flags not stored", "participant_flags_failed",
		logging.Error(err),
		logging.String(logging.FieldImpact, "participant check queries the server again"),
	)
}
