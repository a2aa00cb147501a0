package mpesa

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestCachedTokenSourceRefreshesExpiredToken(t *testing.T) {
	var calls atomic.Int32
	src := NewCachedTokenSource(func(ctx context.Context) (*oauth2.Token, error) {
		n := calls.Add(1)
		// the first token is already inside the expiry margin
		expiry := time.Now().Add(5 * time.Second)
		if n > 1 {
			expiry = time.Now().Add(time.Hour)
		}
		return &oauth2.Token{AccessToken: "tok", Expiry: expiry}, nil
	})

	_, err := src.Token()
	require.NoError(t, err)
	_, err = src.Token()
	require.NoError(t, err)
	_, err = src.Token()
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
}

func TestCachedTokenSourceInvalidate(t *testing.T) {
	var calls atomic.Int32
	src := NewCachedTokenSource(func(ctx context.Context) (*oauth2.Token, error) {
		calls.Add(1)
		return &oauth2.Token{AccessToken: "tok", Expiry: time.Now().Add(time.Hour)}, nil
	})

	_, err := src.TokenContext(context.Background())
	require.NoError(t, err)
	src.Invalidate()
	_, err = src.TokenContext(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
}

func TestCachedTokenSourceCollapsesConcurrentRefreshes(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	src := NewCachedTokenSource(func(ctx context.Context) (*oauth2.Token, error) {
		calls.Add(1)
		<-release
		return &oauth2.Token{AccessToken: "tok", Expiry: time.Now().Add(time.Hour)}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := src.Token()
			assert.NoError(t, err)
			assert.Equal(t, "tok", tok.AccessToken)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestCachedTokenSourceWrapsErrors(t *testing.T) {
	src := NewCachedTokenSource(func(ctx context.Context) (*oauth2.Token, error) {
		return nil, errors.New("connection refused")
	})

	_, err := src.Token()
	assert.ErrorIs(t, err, ErrAuthFailure)
}
