package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vadimbarashkov/shorturls/internal/entity"
	"github.com/vadimbarashkov/shorturls/internal/telemetry"
)

const defaultValidity = 30 * time.Minute

type urlRepository interface {
	Create(originalURL string, validity time.Duration, shortCode string) (*entity.URL, error)
	Lookup(shortCode string) (*entity.URL, error)
	Stats(shortCode string) (*entity.URL, error)
	RecordClick(shortCode string, click entity.Click)
	List() []*entity.URL
}

type eventLogger interface {
	Info(ctx context.Context, pkg, msg string, meta map[string]any)
	Warn(ctx context.Context, pkg, msg string, meta map[string]any)
	Error(ctx context.Context, pkg, msg string, meta map[string]any)
}

type Option func(*URLUseCase)

// WithDefaultValidity sets the validity applied when a request does not specify one.
func WithDefaultValidity(d time.Duration) Option {
	return func(uc *URLUseCase) {
		if d > 0 {
			uc.defaultValidity = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(uc *URLUseCase) {
		uc.now = now
	}
}

type URLUseCase struct {
	defaultValidity time.Duration
	urlRepo         urlRepository
	events          eventLogger
	now             func() time.Time
}

func NewURLUseCase(urlRepo urlRepository, events eventLogger, opts ...Option) *URLUseCase {
	uc := &URLUseCase{
		defaultValidity: defaultValidity,
		urlRepo:         urlRepo,
		events:          events,
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// ShortenURL registers originalURL for validity (the default when zero) under
// shortCode, or under a generated code when shortCode is empty.
func (uc *URLUseCase) ShortenURL(ctx context.Context, originalURL string, validity time.Duration, shortCode string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ShortenURL"

	if validity <= 0 {
		validity = uc.defaultValidity
	}

	url, err := uc.urlRepo.Create(originalURL, validity, shortCode)
	if err != nil {
		if errors.Is(err, entity.ErrShortCodeExists) {
			uc.events.Warn(ctx, telemetry.PackageService, "short code collision", map[string]any{
				"shortcode": shortCode,
			})
		} else {
			uc.events.Error(ctx, telemetry.PackageService, "failed to shorten url", map[string]any{
				"originalUrl": originalURL,
				"error":       err.Error(),
			})
		}

		return nil, fmt.Errorf("%s: failed to shorten url: %w", op, err)
	}

	uc.events.Info(ctx, telemetry.PackageService, "short url created", map[string]any{
		"id":          url.ID,
		"shortcode":   url.ShortCode,
		"originalUrl": url.OriginalURL,
		"expiry":      url.ExpiresAt.UTC().Format(time.RFC3339),
	})

	return url, nil
}

// ResolveShortCode returns the live URL for shortCode and records click against it.
// A zero click timestamp is set to the current time and an empty location to
// entity.UnknownLocation.
func (uc *URLUseCase) ResolveShortCode(ctx context.Context, shortCode string, click entity.Click) (*entity.URL, error) {
	const op = "usecase.URLUseCase.ResolveShortCode"

	url, err := uc.urlRepo.Lookup(shortCode)
	if err != nil {
		uc.events.Warn(ctx, telemetry.PackageService, "short code not resolved", map[string]any{
			"shortcode": shortCode,
		})

		return nil, fmt.Errorf("%s: failed to resolve short code: %w", op, err)
	}

	if click.Timestamp.IsZero() {
		click.Timestamp = uc.now()
	}
	if click.Location == "" {
		click.Location = entity.UnknownLocation
	}

	uc.urlRepo.RecordClick(shortCode, click)

	uc.events.Info(ctx, telemetry.PackageService, "click recorded", map[string]any{
		"shortcode": shortCode,
		"referrer":  click.Referrer,
		"userAgent": click.UserAgent,
		"location":  click.Location,
	})

	return url, nil
}

func (uc *URLUseCase) GetURLStats(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "usecase.URLUseCase.GetURLStats"

	url, err := uc.urlRepo.Stats(shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get url stats: %w", op, err)
	}

	uc.events.Info(ctx, telemetry.PackageService, "statistics retrieved", map[string]any{
		"shortcode":  shortCode,
		"clickCount": url.ClickCount(),
	})

	return url, nil
}

// ListURLs returns every live URL, newest first.
func (uc *URLUseCase) ListURLs(ctx context.Context) []*entity.URL {
	urls := uc.urlRepo.List()

	uc.events.Info(ctx, telemetry.PackageService, "short urls listed", map[string]any{
		"count": len(urls),
	})

	return urls
}
