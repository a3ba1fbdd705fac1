package toast

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToastExpiresAfterDuration(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	id := q.Add("Complaint submitted successfully!", Success, 30*time.Millisecond)
	list := q.List()
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, Success, list[0].Severity)

	assert.Eventually(t, func() bool { return len(q.List()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestDefaultDuration(t *testing.T) {
	q := NewQueue()
	defer q.Close()
	q.Add("Saved", Info, 0)
	assert.Equal(t, DefaultDuration, q.List()[0].Duration)
}

func TestRemoveKeepsOrder(t *testing.T) {
	q := NewQueue()
	defer q.Close()
	a := q.Info("a")
	b := q.Warning("b")
	c := q.Error("c")

	q.Remove(b)
	q.Remove("unknown")

	list := q.List()
	require.Len(t, list, 2)
	assert.Equal(t, a, list[0].ID)
	assert.Equal(t, c, list[1].ID)
}

func TestSubscribersSeeChanges(t *testing.T) {
	q := NewQueue()
	defer q.Close()
	var sizes []int
	unsubscribe := q.Subscribe(func(list []Toast) { sizes = append(sizes, len(list)) })

	id := q.Success("one")
	q.Remove(id)
	unsubscribe()
	q.Success("two")

	assert.Equal(t, []int{1, 0}, sizes)
}

func TestCloseStopsTimers(t *testing.T) {
	q := NewQueue()
	q.Add("pending", Info, 10*time.Millisecond)
	q.Close()
	assert.Empty(t, q.List())

	q.Success("after close")
	assert.Empty(t, q.List())
}

func TestListComponentEscapes(t *testing.T) {
	var buf bytes.Buffer
	err := List([]Toast{{ID: "t1", Message: "<b>bad</b>", Severity: Error}}, "tok").Render(context.Background(), &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "alert-error")
	assert.Contains(t, buf.String(), "&lt;b&gt;bad&lt;/b&gt;")
	assert.Contains(t, buf.String(), `value="tok"`)
	assert.Contains(t, buf.String(), `class="alert alert-error"`)
	assert.Contains(t, buf.String(), `action="/toasts/t1/dismiss"`)
	assert.Contains(t, buf.String(), `data-toast-id="t1"`)
}

func TestListComponentQuotesAttributes(t *testing.T) {
	var buf bytes.Buffer
	err := List([]Toast{{ID: `x"><script>`, Message: "hi", Severity: Info}}, `"tok"`).Render(context.Background(), &buf)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "<script>")
	assert.Contains(t, buf.String(), `value="&#34;tok&#34;"`)
}
