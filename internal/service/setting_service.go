package service

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campushub/registration-api/internal/models"
	"github.com/campushub/registration-api/pkg/config"
	appErrors "github.com/campushub/registration-api/pkg/errors"
)

type settingRepository interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	List(ctx context.Context) ([]models.Setting, error)
	Upsert(ctx context.Context, key, value string) (*models.Setting, error)
}

// settingSpec describes one recognised setting key.
type settingSpec struct {
	Type     models.SettingType
	Fallback func(cfg config.RegistrationConfig) string
}

var settingSpecs = map[string]settingSpec{
	models.SettingRegistrationOpen: {
		Type:     models.SettingTypeBoolean,
		Fallback: func(cfg config.RegistrationConfig) string { return strconv.FormatBool(cfg.DefaultOpen) },
	},
	models.SettingMaxCoursesLimit: {
		Type:     models.SettingTypeInteger,
		Fallback: func(cfg config.RegistrationConfig) string { return strconv.Itoa(cfg.DefaultMaxCourses) },
	},
	models.SettingAutoLogoutEnabled: {
		Type:     models.SettingTypeBoolean,
		Fallback: func(cfg config.RegistrationConfig) string { return strconv.FormatBool(cfg.DefaultAutoLogout) },
	},
	models.SettingAutoLogoutTimeout: {
		Type:     models.SettingTypeInteger,
		Fallback: func(cfg config.RegistrationConfig) string { return strconv.Itoa(cfg.AutoLogoutTimeout) },
	},
}

const settingCachePrefix = "setting:"

// SettingService manages the typed system settings behind a redis
// read-through cache. Only whitelisted keys are accepted; unknown keys are
// validation errors. The cache is invalidated on every write so a stale
// registration switch lives at most one TTL.
type SettingService struct {
	repo     settingRepository
	cache    *redis.Client
	defaults config.RegistrationConfig
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewSettingService constructs SettingService. The cache client may be nil;
// reads then always hit the database.
func NewSettingService(repo settingRepository, cache *redis.Client, defaults config.RegistrationConfig, cacheTTL time.Duration, logger *zap.Logger) *SettingService {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingService{repo: repo, cache: cache, defaults: defaults, cacheTTL: cacheTTL, logger: logger}
}

// List returns every recognised setting, filling defaults for keys that have
// never been written.
func (s *SettingService) List(ctx context.Context) ([]models.Setting, error) {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list settings")
	}
	byKey := make(map[string]models.Setting, len(stored))
	for _, setting := range stored {
		byKey[setting.Key] = setting
	}
	keys := []string{
		models.SettingRegistrationOpen,
		models.SettingMaxCoursesLimit,
		models.SettingAutoLogoutEnabled,
		models.SettingAutoLogoutTimeout,
	}
	settings := make([]models.Setting, 0, len(keys))
	for _, key := range keys {
		if setting, ok := byKey[key]; ok {
			settings = append(settings, setting)
			continue
		}
		settings = append(settings, models.Setting{Key: key, Value: settingSpecs[key].Fallback(s.defaults)})
	}
	return settings, nil
}

// Get returns the raw value of one recognised key.
func (s *SettingService) Get(ctx context.Context, key string) (*models.Setting, error) {
	spec, ok := settingSpecs[key]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown setting key")
	}
	value, err := s.rawValue(ctx, key, spec)
	if err != nil {
		return nil, err
	}
	return &models.Setting{Key: key, Value: value}, nil
}

// Update validates the value against the key's type and persists it,
// dropping the cached copy.
func (s *SettingService) Update(ctx context.Context, key, value string) (*models.Setting, error) {
	spec, ok := settingSpecs[key]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown setting key")
	}
	switch spec.Type {
	case models.SettingTypeBoolean:
		if _, err := strconv.ParseBool(value); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "setting value must be a boolean")
		}
	case models.SettingTypeInteger:
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 1 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "setting value must be a positive integer")
		}
	}

	setting, err := s.repo.Upsert(ctx, key, value)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update setting")
	}
	if s.cache != nil {
		if err := s.cache.Del(ctx, settingCachePrefix+key).Err(); err != nil {
			s.logger.Warn("failed to invalidate setting cache", zap.String("key", key), zap.Error(err))
		}
	}
	s.logger.Info("setting updated", zap.String("key", key), zap.String("value", value))
	return setting, nil
}

// RegistrationOpen reports the global registration switch.
func (s *SettingService) RegistrationOpen(ctx context.Context) (bool, error) {
	value, err := s.rawValue(ctx, models.SettingRegistrationOpen, settingSpecs[models.SettingRegistrationOpen])
	if err != nil {
		return false, err
	}
	open, err := strconv.ParseBool(value)
	if err != nil {
		return s.defaults.DefaultOpen, nil
	}
	return open, nil
}

// MaxCoursesLimit reports the per-student enrollment ceiling.
func (s *SettingService) MaxCoursesLimit(ctx context.Context) (int, error) {
	value, err := s.rawValue(ctx, models.SettingMaxCoursesLimit, settingSpecs[models.SettingMaxCoursesLimit])
	if err != nil {
		return 0, err
	}
	limit, err := strconv.Atoi(value)
	if err != nil || limit < 1 {
		return s.defaults.DefaultMaxCourses, nil
	}
	return limit, nil
}

// AutoLogout reports the idle-session policy exposed to clients.
func (s *SettingService) AutoLogout(ctx context.Context) (bool, int, error) {
	enabledRaw, err := s.rawValue(ctx, models.SettingAutoLogoutEnabled, settingSpecs[models.SettingAutoLogoutEnabled])
	if err != nil {
		return false, 0, err
	}
	timeoutRaw, err := s.rawValue(ctx, models.SettingAutoLogoutTimeout, settingSpecs[models.SettingAutoLogoutTimeout])
	if err != nil {
		return false, 0, err
	}
	enabled, err := strconv.ParseBool(enabledRaw)
	if err != nil {
		enabled = s.defaults.DefaultAutoLogout
	}
	timeout, err := strconv.Atoi(timeoutRaw)
	if err != nil || timeout < 1 {
		timeout = s.defaults.AutoLogoutTimeout
	}
	return enabled, timeout, nil
}

func (s *SettingService) rawValue(ctx context.Context, key string, spec settingSpec) (string, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, settingCachePrefix+key).Result()
		if err == nil {
			return cached, nil
		}
		if err != redis.Nil {
			s.logger.Warn("setting cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	value := spec.Fallback(s.defaults)
	setting, err := s.repo.Get(ctx, key)
	if err != nil && err != sql.ErrNoRows {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read setting")
	}
	if err == nil {
		value = setting.Value
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, settingCachePrefix+key, value, s.cacheTTL).Err(); err != nil {
			s.logger.Warn("setting cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return value, nil
}
