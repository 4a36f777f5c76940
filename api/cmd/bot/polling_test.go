package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestRetryDelayFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want time.Duration
	}{
		{name: "nil", err: nil, want: 0},
		{name: "retry after", err: errors.New("Too Many Requests: retry after 7"), want: 7 * time.Second},
		{name: "429 without hint", err: errors.New("too many requests"), want: 3 * time.Second},
		{name: "timeout", err: timeoutErr{}, want: 2 * time.Second},
		{name: "other", err: errors.New("boom"), want: time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryDelayFromError(tt.err))
		})
	}
}

func TestClampDelay(t *testing.T) {
	assert.Equal(t, pollBaseDelay, clampDelay(0))
	assert.Equal(t, 7*time.Second, clampDelay(7*time.Second))
	assert.Equal(t, pollMaxDelay, clampDelay(time.Minute))
}

type fakeSource struct {
	calls   int
	cancel  context.CancelFunc
	offsets []int
}

func (f *fakeSource) GetUpdates(c tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	f.calls++
	f.offsets = append(f.offsets, c.Offset)
	switch f.calls {
	case 1:
		return []tgbotapi.Update{{UpdateID: 10}, {UpdateID: 11}}, nil
	case 2:
		return []tgbotapi.Update{{UpdateID: 12}}, nil
	default:
		f.cancel()
		return nil, nil
	}
}

func TestRunPollingAdvancesOffset(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	src := &fakeSource{cancel: cancel}

	var seen []int
	runPolling(ctx, src, func(u tgbotapi.Update) { seen = append(seen, u.UpdateID) }, logr.Discard())

	assert.Equal(t, []int{10, 11, 12}, seen)
	assert.Equal(t, []int{0, 12, 13}, src.offsets)
}
