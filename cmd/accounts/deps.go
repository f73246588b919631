package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/dtroode/accounts-server/internal/config"
	"github.com/dtroode/accounts-server/internal/logger"
	"github.com/dtroode/accounts-server/internal/metrics"
	"github.com/dtroode/accounts-server/internal/model"
	"github.com/dtroode/accounts-server/internal/repository/memory"
	"github.com/dtroode/accounts-server/internal/repository/postgres"
	"github.com/dtroode/accounts-server/internal/repository/redis"
	"github.com/dtroode/accounts-server/internal/security"
	"github.com/dtroode/accounts-server/internal/service"
	"github.com/dtroode/accounts-server/internal/sms"
	storage "github.com/dtroode/accounts-server/internal/storage/minio"
	"github.com/dtroode/accounts-server/internal/token"
)

// deps holds everything serve needs, plus the closers to run on exit.
type deps struct {
	accounts *service.Account
	closers  []func() error
}

func (d *deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	return errors.Join(errs...)
}

func buildDeps(ctx context.Context, cfg *config.Config, log *logger.Logger) (*deps, error) {
	d := &deps{}

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN, cfg.Database.ConnectRetries)
	if err != nil {
		return nil, err
	}
	d.closers = append(d.closers, db.Close)

	codes, limits, err := buildCache(ctx, cfg, d)
	if err != nil {
		_ = d.Close()
		return nil, err
	}

	avatars, err := storage.Connect(ctx, storage.Options{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		_ = d.Close()
		return nil, err
	}

	tokens := token.NewJWT(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	d.accounts = service.NewAccount(
		postgres.NewAccountRepository(db, cfg.Database.QueryTimeout),
		codes,
		buildSMSGateway(cfg, log),
		newHasher(cfg),
		newPolicy(cfg),
		service.NewSessions(tokens, log),
		avatars,
		limits,
		service.AccountOptions{
			CodeLength:     cfg.SMS.CodeLength,
			CodeTTL:        cfg.SMS.CodeTTL,
			AvatarMaxBytes: cfg.Storage.AvatarMaxBytes,
		},
		log,
	)

	return d, nil
}

// buildCache selects the code store and limiters. The memory backend only
// suits a single process.
func buildCache(ctx context.Context, cfg *config.Config, d *deps) (model.CodeStore, service.Limits, error) {
	if cfg.CacheBackend == config.CacheMemory {
		return memory.NewCodeStore(), service.Limits{
			SMSSend:   memory.NewLimiter(cfg.Rate.SMSSendLimit, cfg.Rate.SMSSendPeriod),
			SMSVerify: memory.NewLimiter(cfg.Rate.SMSVerifyLimit, cfg.Rate.SMSVerifyPeriod),
			Login:     memory.NewLimiter(cfg.Rate.LoginLimit, cfg.Rate.LoginPeriod),
		}, nil
	}

	client, err := redis.NewClient(ctx, redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Timeout:  cfg.Redis.Timeout,
		Retries:  cfg.Database.ConnectRetries,
	})
	if err != nil {
		return nil, service.Limits{}, err
	}
	d.closers = append(d.closers, client.Close)

	prefix, timeout := cfg.Redis.KeyPrefix, cfg.Redis.Timeout
	return redis.NewCodeRepository(client, prefix, timeout), service.Limits{
		SMSSend:   redis.NewLimiter(client, prefix, "sms_send", cfg.Rate.SMSSendLimit, cfg.Rate.SMSSendPeriod, timeout),
		SMSVerify: redis.NewLimiter(client, prefix, "sms_verify", cfg.Rate.SMSVerifyLimit, cfg.Rate.SMSVerifyPeriod, timeout),
		Login:     redis.NewLimiter(client, prefix, "login", cfg.Rate.LoginLimit, cfg.Rate.LoginPeriod, timeout),
	}, nil
}

func buildSMSGateway(cfg *config.Config, log *logger.Logger) model.SMSGateway {
	if cfg.SMS.Provider != config.SMSProviderTwilio {
		log.Warn("SMS provider is log, codes are written to the log")
		return sms.NewLogGateway(log)
	}

	twilio := sms.NewTwilioGateway(sms.TwilioConfig{
		AccountSID:  cfg.SMS.AccountSID,
		AuthToken:   cfg.SMS.AuthToken,
		From:        cfg.SMS.From,
		BaseURL:     cfg.SMS.BaseURL,
		CountryCode: cfg.SMS.CountryCode,
		Timeout:     cfg.SMS.Timeout,
		CodeTTL:     cfg.SMS.CodeTTL,
	}, &http.Client{Timeout: cfg.SMS.Timeout})

	return sms.NewBreakerGateway(twilio, sms.BreakerSettings{
		MaxFailures: cfg.SMS.BreakerMaxFailures,
		Interval:    cfg.SMS.BreakerInterval,
		OpenTimeout: cfg.SMS.BreakerOpenTimeout,
	}, func(from, to string) {
		log.Warn("SMS gateway breaker state changed", "from", from, "to", to)
		metrics.BreakerStateChanged(from, to)
	})
}

func newHasher(cfg *config.Config) *security.Argon2Hasher {
	return security.NewArgon2Hasher(security.Argon2Params{
		Time:   cfg.KDF.Time,
		MemKiB: cfg.KDF.MemKiB,
		Par:    cfg.KDF.Par,
	})
}

func newPolicy(cfg *config.Config) *security.StrengthPolicy {
	return security.NewStrengthPolicy(cfg.Password.MinLength, cfg.Password.MinScore)
}
