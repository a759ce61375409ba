package gps

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jtaz8681/boat-app/pkg/geo"
)

// querierProvider adds a platform permission query on top of the fake.
type querierProvider struct {
	*fakeProvider
	mu        sync.Mutex
	permState PermissionState
	permErr   error
}

func (q *querierProvider) PermissionStatus(ctx context.Context) (PermissionState, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.permState, q.permErr
}

func TestPermissionTrackerStartsUnknown(t *testing.T) {
	pt := NewPermissionTracker(newFakeProvider(), testLogger())
	assert.Equal(t, PermissionUnknown, pt.State())
}

func TestProbeMapsSuccessToGranted(t *testing.T) {
	pt := NewPermissionTracker(newFakeProvider(), testLogger())
	assert.Equal(t, PermissionGranted, pt.Query(context.Background()))
	assert.Equal(t, PermissionGranted, pt.State())
}

func TestProbeMapsDenialToDenied(t *testing.T) {
	fake := newFakeProvider()
	fake.currentFn = func(ctx context.Context, opts Options) (*geo.Position, error) {
		return nil, NewError(CodePermissionDenied, "denied")
	}
	pt := NewPermissionTracker(fake, testLogger())
	assert.Equal(t, PermissionDenied, pt.Query(context.Background()))
}

// A probe timeout cannot distinguish "not yet asked" from a transient
// failure, so it maps to Prompt rather than Denied.
func TestProbeMapsTimeoutToPrompt(t *testing.T) {
	fake := newFakeProvider()
	fake.currentFn = func(ctx context.Context, opts Options) (*geo.Position, error) {
		return nil, NewError(CodeTimeout, "no fix in time")
	}
	pt := NewPermissionTracker(fake, testLogger())
	assert.Equal(t, PermissionPrompt, pt.Query(context.Background()))
}

func TestProbeMapsUnavailableToPrompt(t *testing.T) {
	fake := newFakeProvider()
	fake.currentFn = func(ctx context.Context, opts Options) (*geo.Position, error) {
		return nil, NewError(CodePositionUnavailable, "no satellites")
	}
	pt := NewPermissionTracker(fake, testLogger())
	assert.Equal(t, PermissionPrompt, pt.Query(context.Background()))
}

func TestUnsupportedProviderIsDenied(t *testing.T) {
	fake := newFakeProvider()
	fake.supported = false
	pt := NewPermissionTracker(fake, testLogger())
	assert.Equal(t, PermissionDenied, pt.Query(context.Background()))
}

func TestQuerierTakesPrecedenceOverProbe(t *testing.T) {
	probed := false
	base := newFakeProvider()
	base.currentFn = func(ctx context.Context, opts Options) (*geo.Position, error) {
		probed = true
		return fixAt(1, 1, 5), nil
	}
	q := &querierProvider{fakeProvider: base, permState: PermissionDenied}

	pt := NewPermissionTracker(q, testLogger())
	assert.Equal(t, PermissionDenied, pt.Query(context.Background()))
	assert.False(t, probed, "querier answer must not trigger a probe")
}

func TestQuerierNotSupportedFallsBackToProbe(t *testing.T) {
	base := newFakeProvider()
	q := &querierProvider{fakeProvider: base, permErr: NewError(CodeNotSupported, "no query primitive")}

	pt := NewPermissionTracker(q, testLogger())
	assert.Equal(t, PermissionGranted, pt.Query(context.Background()))
}

func TestRequestGrantsOnFix(t *testing.T) {
	pt := NewPermissionTracker(newFakeProvider(), testLogger())
	assert.True(t, pt.Request(context.Background(), DefaultOptions()))
	assert.Equal(t, PermissionGranted, pt.State())
}

func TestRequestDeniedOnPermissionError(t *testing.T) {
	fake := newFakeProvider()
	fake.currentFn = func(ctx context.Context, opts Options) (*geo.Position, error) {
		return nil, NewError(CodePermissionDenied, "denied")
	}
	pt := NewPermissionTracker(fake, testLogger())
	assert.False(t, pt.Request(context.Background(), DefaultOptions()))
	assert.Equal(t, PermissionDenied, pt.State())
}

func TestObserversFireOnChangeOnly(t *testing.T) {
	fake := newFakeProvider()
	pt := NewPermissionTracker(fake, testLogger())

	var mu sync.Mutex
	var seen []PermissionState
	pt.Observe(func(s PermissionState) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	pt.Query(context.Background())
	pt.Query(context.Background()) // same state, no notification

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.Equal(t, PermissionGranted, seen[0])
}

func TestObserverUnsubscribeIsolation(t *testing.T) {
	pt := NewPermissionTracker(newFakeProvider(), testLogger())

	var mu sync.Mutex
	firstCalls, secondCalls := 0, 0
	unsubFirst := pt.Observe(func(PermissionState) {
		mu.Lock()
		firstCalls++
		mu.Unlock()
	})
	pt.Observe(func(PermissionState) {
		mu.Lock()
		secondCalls++
		mu.Unlock()
	})

	unsubFirst()
	pt.MarkDenied("test")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, firstCalls)
	assert.Equal(t, 1, secondCalls)
}

func TestConcurrentRequestsAreSafe(t *testing.T) {
	pt := NewPermissionTracker(newFakeProvider(), testLogger())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pt.Request(context.Background(), DefaultOptions())
		}()
	}
	wg.Wait()

	assert.Equal(t, PermissionGranted, pt.State())
}
