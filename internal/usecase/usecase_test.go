package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vadimbarashkov/shorturls/internal/entity"
)

type MockURLRepository struct {
	mock.Mock
}

func (r *MockURLRepository) Create(originalURL string, validity time.Duration, shortCode string) (*entity.URL, error) {
	args := r.Called(originalURL, validity, shortCode)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) Lookup(shortCode string) (*entity.URL, error) {
	args := r.Called(shortCode)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) Stats(shortCode string) (*entity.URL, error) {
	args := r.Called(shortCode)
	url, _ := args.Get(0).(*entity.URL)
	return url, args.Error(1)
}

func (r *MockURLRepository) RecordClick(shortCode string, click entity.Click) {
	r.Called(shortCode, click)
}

func (r *MockURLRepository) List() []*entity.URL {
	args := r.Called()
	urls, _ := args.Get(0).([]*entity.URL)
	return urls
}

type MockEventLogger struct {
	mock.Mock
}

func (l *MockEventLogger) Info(ctx context.Context, pkg, msg string, meta map[string]any) {
	l.Called(ctx, pkg, msg, meta)
}

func (l *MockEventLogger) Warn(ctx context.Context, pkg, msg string, meta map[string]any) {
	l.Called(ctx, pkg, msg, meta)
}

func (l *MockEventLogger) Error(ctx context.Context, pkg, msg string, meta map[string]any) {
	l.Called(ctx, pkg, msg, meta)
}

type URLUseCaseTestSuite struct {
	suite.Suite
	errUnknown  error
	now         time.Time
	urlRepoMock *MockURLRepository
	eventsMock  *MockEventLogger
	uc          *URLUseCase
}

func (suite *URLUseCaseTestSuite) SetupSuite() {
	suite.errUnknown = errors.New("unknown error")
	suite.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (suite *URLUseCaseTestSuite) SetupSubTest() {
	suite.urlRepoMock = new(MockURLRepository)
	suite.eventsMock = new(MockEventLogger)
	suite.uc = NewURLUseCase(
		suite.urlRepoMock,
		suite.eventsMock,
		WithDefaultValidity(45*time.Minute),
		WithClock(func() time.Time { return suite.now }),
	)
}

func (suite *URLUseCaseTestSuite) TearDownSubTest() {
	suite.urlRepoMock.AssertExpectations(suite.T())
	suite.eventsMock.AssertExpectations(suite.T())
}

func (suite *URLUseCaseTestSuite) TestNewURLUseCase() {
	suite.Run("default validity", func() {
		uc := NewURLUseCase(suite.urlRepoMock, suite.eventsMock)

		suite.Equal(30*time.Minute, uc.defaultValidity)
	})

	suite.Run("non-positive default validity ignored", func() {
		uc := NewURLUseCase(suite.urlRepoMock, suite.eventsMock, WithDefaultValidity(0))

		suite.Equal(30*time.Minute, uc.defaultValidity)
	})
}

func (suite *URLUseCaseTestSuite) TestShortenURL() {
	suite.Run("short code exists", func() {
		suite.urlRepoMock.
			On("Create", "https://example.com", time.Minute, "abc123").
			Once().
			Return(nil, entity.ErrShortCodeExists)
		suite.eventsMock.
			On("Warn", mock.Anything, "service", "short code collision", mock.Anything).
			Once()

		url, err := suite.uc.ShortenURL(context.Background(), "https://example.com", time.Minute, "abc123")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrShortCodeExists)
		suite.Nil(url)
	})

	suite.Run("unknown error", func() {
		suite.urlRepoMock.
			On("Create", "https://example.com", time.Minute, "").
			Once().
			Return(nil, suite.errUnknown)
		suite.eventsMock.
			On("Error", mock.Anything, "service", "failed to shorten url", mock.Anything).
			Once()

		url, err := suite.uc.ShortenURL(context.Background(), "https://example.com", time.Minute, "")

		suite.Error(err)
		suite.ErrorIs(err, suite.errUnknown)
		suite.Nil(url)
	})

	suite.Run("default validity", func() {
		suite.urlRepoMock.
			On("Create", "https://example.com", 45*time.Minute, "").
			Once().
			Return(&entity.URL{
				ShortCode:   "abc123",
				OriginalURL: "https://example.com",
				CreatedAt:   suite.now,
				ExpiresAt:   suite.now.Add(45 * time.Minute),
			}, nil)
		suite.eventsMock.
			On("Info", mock.Anything, "service", "short url created", mock.Anything).
			Once()

		url, err := suite.uc.ShortenURL(context.Background(), "https://example.com", 0, "")

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal("abc123", url.ShortCode)
	})

	suite.Run("success", func() {
		suite.urlRepoMock.
			On("Create", "https://example.com", 2*time.Minute, "custom").
			Once().
			Return(&entity.URL{
				ShortCode:   "custom",
				OriginalURL: "https://example.com",
				CreatedAt:   suite.now,
				ExpiresAt:   suite.now.Add(2 * time.Minute),
			}, nil)
		suite.eventsMock.
			On("Info", mock.Anything, "service", "short url created", map[string]any{
				"id":          "",
				"shortcode":   "custom",
				"originalUrl": "https://example.com",
				"expiry":      "2024-01-01T12:02:00Z",
			}).
			Once()

		url, err := suite.uc.ShortenURL(context.Background(), "https://example.com", 2*time.Minute, "custom")

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal("custom", url.ShortCode)
		suite.Equal("https://example.com", url.OriginalURL)
	})
}

func (suite *URLUseCaseTestSuite) TestResolveShortCode() {
	suite.Run("url not found", func() {
		suite.urlRepoMock.
			On("Lookup", "abc123").
			Once().
			Return(nil, entity.ErrURLNotFound)
		suite.eventsMock.
			On("Warn", mock.Anything, "service", "short code not resolved", mock.Anything).
			Once()

		url, err := suite.uc.ResolveShortCode(context.Background(), "abc123", entity.Click{})

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
		suite.urlRepoMock.AssertNotCalled(suite.T(), "RecordClick", mock.Anything, mock.Anything)
	})

	suite.Run("fills click defaults", func() {
		suite.urlRepoMock.
			On("Lookup", "abc123").
			Once().
			Return(&entity.URL{
				ShortCode:   "abc123",
				OriginalURL: "https://example.com",
			}, nil)
		suite.urlRepoMock.
			On("RecordClick", "abc123", entity.Click{
				Timestamp: suite.now,
				UserAgent: "curl/8.0",
				Location:  entity.UnknownLocation,
			}).
			Once()
		suite.eventsMock.
			On("Info", mock.Anything, "service", "click recorded", mock.Anything).
			Once()

		url, err := suite.uc.ResolveShortCode(context.Background(), "abc123", entity.Click{UserAgent: "curl/8.0"})

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal("https://example.com", url.OriginalURL)
	})

	suite.Run("keeps click fields", func() {
		click := entity.Click{
			Timestamp: suite.now.Add(-time.Second),
			Referrer:  "https://ref.example.com",
			UserAgent: "curl/8.0",
			Location:  "203.0.113.7",
		}

		suite.urlRepoMock.
			On("Lookup", "abc123").
			Once().
			Return(&entity.URL{ShortCode: "abc123", OriginalURL: "https://example.com"}, nil)
		suite.urlRepoMock.
			On("RecordClick", "abc123", click).
			Once()
		suite.eventsMock.
			On("Info", mock.Anything, "service", "click recorded", mock.Anything).
			Once()

		url, err := suite.uc.ResolveShortCode(context.Background(), "abc123", click)

		suite.NoError(err)
		suite.NotNil(url)
	})
}

func (suite *URLUseCaseTestSuite) TestGetURLStats() {
	suite.Run("url not found", func() {
		suite.urlRepoMock.
			On("Stats", "abc123").
			Once().
			Return(nil, entity.ErrURLNotFound)

		url, err := suite.uc.GetURLStats(context.Background(), "abc123")

		suite.Error(err)
		suite.ErrorIs(err, entity.ErrURLNotFound)
		suite.Nil(url)
	})

	suite.Run("success", func() {
		suite.urlRepoMock.
			On("Stats", "abc123").
			Once().
			Return(&entity.URL{
				ShortCode:   "abc123",
				OriginalURL: "https://example.com",
				Clicks:      []entity.Click{{Location: entity.UnknownLocation}},
			}, nil)
		suite.eventsMock.
			On("Info", mock.Anything, "service", "statistics retrieved", map[string]any{
				"shortcode":  "abc123",
				"clickCount": 1,
			}).
			Once()

		url, err := suite.uc.GetURLStats(context.Background(), "abc123")

		suite.NoError(err)
		suite.NotNil(url)
		suite.Equal(1, url.ClickCount())
	})
}

func (suite *URLUseCaseTestSuite) TestListURLs() {
	suite.Run("success", func() {
		suite.urlRepoMock.
			On("List").
			Once().
			Return([]*entity.URL{
				{ShortCode: "second"},
				{ShortCode: "first"},
			})
		suite.eventsMock.
			On("Info", mock.Anything, "service", "short urls listed", map[string]any{"count": 2}).
			Once()

		urls := suite.uc.ListURLs(context.Background())

		suite.Len(urls, 2)
		suite.Equal("second", urls[0].ShortCode)
	})
}

func TestURLUseCase(t *testing.T) {
	suite.Run(t, new(URLUseCaseTestSuite))
}
