package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errProviderDown = errors.New("provider overloaded")

func TestCircuitBreakerMiddleware_Transitions(t *testing.T) {
	type step struct {
		// fail makes the provider error on this step.
		fail bool
		// wait sleeps before the step.
		wait    time.Duration
		wantErr error
	}

	tests := []struct {
		name        string
		maxFailures int
		cooldown    time.Duration
		steps       []step
		wantCalls   int
		wantState   CircuitBreakerState
	}{
		{
			name:        "healthy provider keeps the circuit closed",
			maxFailures: 3,
			cooldown:    time.Minute,
			steps:       []step{{}, {}, {}},
			wantCalls:   3,
			wantState:   StateClosed,
		},
		{
			name:        "consecutive failures open the circuit",
			maxFailures: 2,
			cooldown:    time.Minute,
			steps: []step{
				{fail: true, wantErr: errProviderDown},
				{fail: true, wantErr: errProviderDown},
				{wantErr: ErrCircuitOpen},
			},
			wantCalls: 2,
			wantState: StateOpen,
		},
		{
			name:        "a success resets the failure count",
			maxFailures: 2,
			cooldown:    time.Minute,
			steps: []step{
				{fail: true, wantErr: errProviderDown},
				{},
				{fail: true, wantErr: errProviderDown},
				{},
			},
			wantCalls: 4,
			wantState: StateClosed,
		},
		{
			name:        "successful trial call after cooldown closes the circuit",
			maxFailures: 1,
			cooldown:    20 * time.Millisecond,
			steps: []step{
				{fail: true, wantErr: errProviderDown},
				{wantErr: ErrCircuitOpen},
				{wait: 30 * time.Millisecond},
				{},
			},
			wantCalls: 3,
			wantState: StateClosed,
		},
		{
			name:        "failed trial call reopens the circuit",
			maxFailures: 1,
			cooldown:    20 * time.Millisecond,
			steps: []step{
				{fail: true, wantErr: errProviderDown},
				{wait: 30 * time.Millisecond, fail: true, wantErr: errProviderDown},
				{wantErr: ErrCircuitOpen},
			},
			wantCalls: 2,
			wantState: StateOpen,
		},
		{
			name:        "zero max failures trips on the first failure",
			maxFailures: 0,
			cooldown:    time.Minute,
			steps: []step{
				{fail: true, wantErr: errProviderDown},
				{wantErr: ErrCircuitOpen},
			},
			wantCalls: 1,
			wantState: StateOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given a critic transport behind a circuit breaker
			mock := NewMockCoreLLM()
			cb := NewCircuitBreaker(tt.maxFailures, tt.cooldown)
			wrapped := &circuitBreakerLLM{next: mock, cb: cb}

			// When critiques are requested step by step
			for i, s := range tt.steps {
				time.Sleep(s.wait)
				mock.Error = nil
				if s.fail {
					mock.Error = errProviderDown
				}
				_, _, _, err := wrapped.DoRequest(t.Context(), "critique this letter", nil)

				// Then each step sees the provider or the breaker answer
				if s.wantErr == nil {
					require.NoError(t, err, "step %d", i)
				} else {
					require.ErrorIs(t, err, s.wantErr, "step %d", i)
				}
			}

			assert.Equal(t, tt.wantCalls, mock.GetCallCount(), "requests that reached the provider")
			assert.Equal(t, tt.wantState, cb.GetState())
		})
	}
}

func TestCircuitBreakerMiddleware_RecordsMetrics(t *testing.T) {
	// Given a breaker reporting to a metrics sink
	mock := NewMockCoreLLM()
	metrics := &mockCircuitBreakerMetrics{}
	wrapped := CircuitBreakerMiddlewareWithMetrics(2, time.Minute, metrics)(mock)

	// When one critique succeeds, two fail and one is rejected
	_, _, _, err := wrapped.DoRequest(t.Context(), "letter", nil)
	require.NoError(t, err)
	mock.Error = errProviderDown
	for range 2 {
		_, _, _, err = wrapped.DoRequest(t.Context(), "letter", nil)
		require.ErrorIs(t, err, errProviderDown)
	}
	_, _, _, err = wrapped.DoRequest(t.Context(), "letter", nil)
	require.ErrorIs(t, err, ErrCircuitOpen)

	// Then every outcome and the resulting state are reported
	assert.Equal(t, 1, metrics.successes)
	assert.Equal(t, 2, metrics.failures)
	assert.Equal(t, 1, metrics.trips)
	assert.Equal(t, []CircuitBreakerState{StateClosed, StateClosed, StateOpen, StateOpen}, metrics.states)
}

func TestCircuitBreakerMiddleware_SharedAcrossClients(t *testing.T) {
	// Given one middleware wrapping two transports
	mw := CircuitBreakerMiddleware(1, time.Minute)
	failing, healthy := NewMockCoreLLM(), NewMockCoreLLM()
	failing.Error = errProviderDown

	// When the first transport trips the breaker
	_, _, _, err := mw(failing).DoRequest(t.Context(), "letter", nil)
	require.ErrorIs(t, err, errProviderDown)

	// Then the second is rejected too
	_, _, _, err = mw(healthy).DoRequest(t.Context(), "letter", nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, healthy.GetCallCount())
}

func TestCircuitBreakerMiddleware_Passthrough(t *testing.T) {
	// Given a closed breaker
	mock := NewMockCoreLLM()
	wrapped := CircuitBreakerMiddleware(3, time.Minute)(mock)
	ctx := context.WithValue(t.Context(), testContextKey, "ev-7")
	opts := map[string]any{"temperature": 0.7, "max_tokens": 100}

	// When a critique is requested
	_, _, _, err := wrapped.DoRequest(ctx, "critique this letter", opts)
	require.NoError(t, err)

	// Then prompt, options, context and model reach the provider unchanged
	assert.Equal(t, "critique this letter", mock.LastPrompt)
	assert.Equal(t, opts, mock.LastOpts)
	assert.Equal(t, "ev-7", mock.LastContext.Value(testContextKey))

	wrapped.SetModel("claude-opus-4")
	assert.Equal(t, "claude-opus-4", wrapped.GetModel())
	assert.Equal(t, "claude-opus-4", mock.GetModel())
}

func TestCircuitBreakerMiddleware_ConcurrentSamples(t *testing.T) {
	// Given a provider failing every other call and a tolerant breaker
	mock := NewMockCoreLLM()
	mock.AlternateErrors = true
	wrapped := CircuitBreakerMiddleware(100, time.Minute)(mock)

	// When samples are requested concurrently
	const n = 20
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		ok, failed int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _, err := wrapped.DoRequest(t.Context(), "letter", nil)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				return
			}
			ok++
		}()
	}
	wg.Wait()

	// Then every request reached the provider and finished
	assert.Equal(t, n, ok+failed)
	assert.Positive(t, ok)
	assert.Positive(t, failed)
	assert.Equal(t, n, mock.GetCallCount())
}

func TestCircuitBreaker_HalfOpenAdmitsSingleTrialCall(t *testing.T) {
	// Given a breaker past its cooldown
	cb := NewCircuitBreaker(1, 10*time.Millisecond)
	_ = cb.Call(func() error { return errProviderDown })
	time.Sleep(15 * time.Millisecond)

	release := make(chan struct{})
	trying := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Call(func() error {
			close(trying)
			<-release
			return nil
		})
	}()
	<-trying

	// When a second caller arrives during the trial call
	err := cb.Call(func() error { return nil })

	// Then it is rejected until the trial call settles
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, StateHalfOpen, cb.GetState())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_CancellationIsNotFailure(t *testing.T) {
	tests := []struct {
		name string
		// open trips the breaker and waits out the cooldown first.
		open      bool
		wantState CircuitBreakerState
	}{
		{name: "closed breaker stays closed", wantState: StateClosed},
		{name: "cancelled trial call frees the half-open slot", open: true, wantState: StateHalfOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := NewCircuitBreaker(1, 10*time.Millisecond)
			if tt.open {
				_ = cb.Call(func() error { return errProviderDown })
				time.Sleep(15 * time.Millisecond)
			}

			// When the caller gives up mid-request
			err := cb.Call(func() error { return context.Canceled })

			// Then the provider is not blamed
			assert.ErrorIs(t, err, context.Canceled)
			assert.Equal(t, tt.wantState, cb.GetState())
			assert.NoError(t, cb.Call(func() error { return nil }))
			assert.Equal(t, StateClosed, cb.GetState())
		})
	}
}

func TestCircuitBreakerState_String(t *testing.T) {
	for state, want := range map[CircuitBreakerState]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half_open",
	} {
		assert.Equal(t, want, state.String())
	}
}
