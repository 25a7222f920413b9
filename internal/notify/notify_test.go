package notify

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type sent struct {
	userID int64
	text   string
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (r *recordingSender) Send(userID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sent{userID, text})
	return r.err
}

func (r *recordingSender) all() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sent(nil), r.msgs...)
}

const window = 20 * time.Millisecond

func TestNotifyKeepsOnlyLatest(t *testing.T) {
	s := &recordingSender{}
	d := NewDebouncer(s, window)

	d.Notify(1, "first")
	d.Notify(1, "second")
	d.Notify(1, "third")
	assert.Equal(t, 1, d.Pending())

	require.Eventually(t, func() bool { return len(s.all()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(2 * window)

	assert.Equal(t, []sent{{1, "third"}}, s.all())
	assert.Equal(t, 0, d.Pending())
}

func TestNotifyUsersAreIndependent(t *testing.T) {
	s := &recordingSender{}
	d := NewDebouncer(s, window)

	d.Notify(1, "🃏 Your turn to match or pass!")
	d.Notify(2, "🚌 Your turn on the bus!")

	require.Eventually(t, func() bool { return len(s.all()) == 2 }, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []sent{
		{1, "🃏 Your turn to match or pass!"},
		{2, "🚌 Your turn on the bus!"},
	}, s.all())
}

func TestStopCancelsPending(t *testing.T) {
	s := &recordingSender{}
	d := NewDebouncer(s, window)

	d.Notify(1, "hello")
	d.Stop()
	d.Notify(2, "ignored")

	time.Sleep(3 * window)
	assert.Empty(t, s.all())
	assert.Equal(t, 0, d.Pending())
}

func TestSendFailureIsSwallowed(t *testing.T) {
	s := &recordingSender{err: errors.New("bot was blocked by the user")}
	d := NewDebouncer(s, 0)

	d.Notify(5, "hi")

	require.Eventually(t, func() bool { return len(s.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, d.Pending())
}

// TestLatestWinsProperty checks that a burst for one user delivers exactly
// its last text.
func TestLatestWinsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		texts := rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,8}`), 1, 10).Draw(t, "texts")

		s := &recordingSender{}
		d := NewDebouncer(s, 10*time.Millisecond)
		for _, text := range texts {
			d.Notify(9, text)
		}

		deadline := time.Now().Add(time.Second)
		for len(s.all()) == 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		got := s.all()
		if len(got) != 1 || got[0].text != texts[len(texts)-1] {
			t.Fatalf("sent %v, want only %q", got, texts[len(texts)-1])
		}
	})
}
