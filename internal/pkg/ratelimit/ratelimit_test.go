package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPolicy = Policy{
	Window:      15 * time.Minute,
	MaxAttempts: 5,
	BlockFor:    30 * time.Minute,
}

// limiterAt returns a limiter with a controllable clock.
func limiterAt(start time.Time) (*MemoryLimiter, *time.Time) {
	now := start
	l := NewMemoryLimiter()
	l.now = func() time.Time { return now }
	return l, &now
}

func TestKey_NamespacesAction(t *testing.T) {
	assert.Equal(t, "verification:u1:c1", Key("verification", "u1", "c1"))
	assert.NotEqual(t, Key("verification", "u1"), Key("resend", "u1"))
}

func TestCheck_UnknownKey_NotLimited(t *testing.T) {
	l := NewMemoryLimiter()
	d := l.Check("verification:u1:c1", testPolicy)
	assert.False(t, d.Limited)
	assert.Equal(t, 5, d.Remaining)
}

func TestRecordAttempt_BlocksAtMaxAttempts(t *testing.T) {
	l, _ := limiterAt(time.Now())
	key := Key("verification", "u1", "c1")

	for i := 0; i < 4; i++ {
		d := l.RecordAttempt(key, testPolicy)
		require.False(t, d.Limited, "attempt %d should not block", i+1)
	}

	d := l.RecordAttempt(key, testPolicy)
	assert.True(t, d.Limited)
	assert.Equal(t, 30*time.Minute, d.RetryAfter)

	d = l.Check(key, testPolicy)
	assert.True(t, d.Limited)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
}

func TestCheck_WindowExpiry_Resets(t *testing.T) {
	l, now := limiterAt(time.Now())
	key := Key("verification", "u1", "c1")

	l.RecordAttempt(key, testPolicy)
	l.RecordAttempt(key, testPolicy)

	*now = now.Add(16 * time.Minute)
	d := l.Check(key, testPolicy)
	assert.False(t, d.Limited)
	assert.Equal(t, 5, d.Remaining)
}

func TestRecordAttempt_AfterWindowExpiry_StartsFreshWindow(t *testing.T) {
	l, now := limiterAt(time.Now())
	key := Key("verification", "u1", "c1")

	for i := 0; i < 4; i++ {
		l.RecordAttempt(key, testPolicy)
	}
	*now = now.Add(16 * time.Minute)

	d := l.RecordAttempt(key, testPolicy)
	assert.False(t, d.Limited)
	assert.Equal(t, 4, d.Remaining)
}

func TestClear_ResetsCounter(t *testing.T) {
	l, _ := limiterAt(time.Now())
	key := Key("verification", "u1", "c1")

	for i := 0; i < 5; i++ {
		l.RecordAttempt(key, testPolicy)
	}
	require.True(t, l.Check(key, testPolicy).Limited)

	l.Clear(key)
	d := l.Check(key, testPolicy)
	assert.False(t, d.Limited)
	assert.Equal(t, 5, d.Remaining)
}

func TestPolicies_DoNotShareState(t *testing.T) {
	l, _ := limiterAt(time.Now())
	verifyKey := Key("verification", "u1", "c1")
	resendKey := Key("resend", "u1", "c1")

	for i := 0; i < 5; i++ {
		l.RecordAttempt(verifyKey, testPolicy)
	}
	assert.True(t, l.Check(verifyKey, testPolicy).Limited)
	assert.False(t, l.Check(resendKey, testPolicy).Limited)
}

func TestRecordAttempt_ConcurrentCallers_NeverExceedBudget(t *testing.T) {
	l := NewMemoryLimiter()
	key := Key("verification", "u1", "c1")

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d := l.RecordAttempt(key, testPolicy)
			if !d.Limited {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, testPolicy.MaxAttempts-1, allowed)
	assert.True(t, l.Check(key, testPolicy).Limited)
}

func TestCleanup_RemovesStaleRecords(t *testing.T) {
	l, now := limiterAt(time.Now())

	l.RecordAttempt(Key("verification", "u1"), testPolicy)
	l.RecordAttempt(Key("verification", "u2"), testPolicy)

	*now = now.Add(25 * time.Hour)
	cleaned := l.Cleanup(24 * time.Hour)
	assert.Equal(t, 2, cleaned)
}

func TestCleanup_KeepsBlockedRecords(t *testing.T) {
	l, now := limiterAt(time.Now())
	key := Key("verification", "u1")

	for i := 0; i < 5; i++ {
		l.RecordAttempt(key, testPolicy)
	}
	*now = now.Add(20 * time.Minute) // window gone, block still active
	assert.Equal(t, 0, l.Cleanup(time.Minute))
	assert.True(t, l.Check(key, testPolicy).Limited)
}
