// Package vocalizations manages the vocalization labels recordings are
// tagged with. Listing goes through the offline-aware cache; mutations call
// the API and then patch the cached list in place.
package vocalizations

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"vocalize/internal/api"
	"vocalize/internal/apierr"
	"vocalize/internal/cache"
	"vocalize/internal/connectivity"
	"vocalize/internal/logging"
	"vocalize/internal/vault"
)

// CacheKey stores the label list.
const CacheKey = "vocalizations"

const basePath = "/vocalizacoes"

// Vocalization is a label such as "choro" or "balbucio".
type Vocalization struct {
	ID          int64  `json:"id"`
	Name        string `json:"nome"`
	Description string `json:"descricao"`
	UserID      *int64 `json:"id_usuario,omitempty"`
}

func (v Vocalization) CacheID() string { return strconv.FormatInt(v.ID, 10) }

// Update carries the fields to change. Empty strings leave a field as is.
// OwnerID must be the label's owner for non-admin sessions.
type Update struct {
	Name        string `json:"nome,omitempty"`
	Description string `json:"descricao,omitempty"`
	OwnerID     *int64 `json:"id_usuario,omitempty"`
}

// Service lists and edits labels.
type Service struct {
	client  *api.Client
	vault   *vault.Vault
	fetcher *cache.Fetcher[Vocalization]
	logger  *slog.Logger
}

// New builds a Service on the authenticated client.
func New(client *api.Client, c *cache.Cache, checker connectivity.Checker, logger *slog.Logger) *Service {
	return &Service{
		client:  client,
		vault:   client.Vault(),
		fetcher: cache.NewFetcher[Vocalization](c, checker, "vocalizations"),
		logger:  logging.NewComponentLogger(logger, "vocalizations"),
	}
}

// List returns all labels, from cache while fresh unless force is set.
func (s *Service) List(ctx context.Context, force bool) ([]Vocalization, error) {
	return s.fetcher.Load(ctx, CacheKey, force, func(ctx context.Context) ([]Vocalization, error) {
		var out []Vocalization
		if err := s.client.Get(ctx, basePath, nil, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
}

// Create adds a label. Both name and description are required.
func (s *Service) Create(ctx context.Context, name, description string) (Vocalization, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" || description == "" {
		return Vocalization{}, apierr.New(apierr.KindValidation, "Nome e descrição são obrigatórios.")
	}

	var created Vocalization
	if err := s.client.Post(ctx, basePath, map[string]string{"nome": name, "descricao": description}, &created); err != nil {
		return Vocalization{}, err
	}
	if err := cache.Append(ctx, s.fetcher.Cache(), CacheKey, created); err != nil {
		s.warnCache("create", err)
	}
	s.logger.Info("vocalization created",
		logging.String(logging.FieldEventType, "vocalization_created"),
		logging.Int64("vocalization_id", created.ID),
	)
	return created, nil
}

// Update edits a label. Admins may edit any label; other users only their own.
func (s *Service) Update(ctx context.Context, id int64, update Update) error {
	creds, err := s.vault.Credentials(ctx)
	if err != nil {
		return apierr.Wrap(apierr.KindStorageCorruption, "read session", err)
	}
	if !creds.IsAdmin() && !ownedBy(update.OwnerID, creds.UserID) {
		return apierr.New(apierr.KindPermissionDenied, "Você não tem permissão para atualizar vocalizações.")
	}

	if err := s.client.Patch(ctx, fmt.Sprintf("%s/%d", basePath, id), update, nil); err != nil {
		return err
	}
	key := strconv.FormatInt(id, 10)
	if _, err := cache.Patch(ctx, s.fetcher.Cache(), CacheKey, cache.ReplaceByID(key, func(v Vocalization) Vocalization {
		if update.Name != "" {
			v.Name = update.Name
		}
		if update.Description != "" {
			v.Description = update.Description
		}
		if update.OwnerID != nil {
			v.UserID = update.OwnerID
		}
		return v
	})); err != nil {
		s.warnCache("update", err)
	}
	return nil
}

// Delete removes a label. Only admins may delete; other sessions are
// rejected before any request is sent.
func (s *Service) Delete(ctx context.Context, id int64) error {
	role, err := s.vault.Role(ctx)
	if err != nil {
		return apierr.Wrap(apierr.KindStorageCorruption, "read session", err)
	}
	if role != vault.RoleAdmin {
		return apierr.New(apierr.KindPermissionDenied, "Você não tem permissão para deletar vocalizações.")
	}

	if err := s.client.Delete(ctx, fmt.Sprintf("%s/%d", basePath, id)); err != nil {
		return err
	}
	if _, err := cache.Patch(ctx, s.fetcher.Cache(), CacheKey, cache.RemoveByID[Vocalization](strconv.FormatInt(id, 10))); err != nil {
		s.warnCache("delete", err)
	}
	return nil
}

func (s *Service) warnCache(op string, err error) {
	logging.WarnWithContext(s.logger, "cache patch failed", "cache_patch_failed",
		logging.String("operation", op),
		logging.String(logging.FieldCacheKey, CacheKey),
		logging.Error(err),
		logging.String(logging.FieldImpact, "cached labels refresh on the next forced list"),
	)
}

func ownedBy(owner *int64, userID string) bool {
	if owner == nil || userID == "" {
		return false
	}
	return strconv.FormatInt(*owner, 10) == strings.TrimSpace(userID)
}
