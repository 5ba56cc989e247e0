package event

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/keel/internal/fault"
	"github.com/roach88/keel/internal/val"
)

type countingSeq struct {
	n int64
}

func (c *countingSeq) Next() int64 {
	c.n++
	return c.n
}

type failingSink struct{}

func (failingSink) AppendEvent(Event) error {
	return fmt.Errorf("sink unavailable")
}

type capturingSink struct {
	got []Event
}

func (c *capturingSink) AppendEvent(ev Event) error {
	c.got = append(c.got, ev)
	return nil
}

func TestLog_PublishOrder(t *testing.T) {
	l := NewLog(&countingSeq{})

	require.NoError(t, l.Publish("mint", val.Map{"to": val.Addr("GALICE"), "amount": val.I64(100)}))
	require.NoError(t, l.Publish("transfer", val.Map{"from": val.Addr("GALICE")}))
	require.NoError(t, l.Publish("burn", val.Map{"from": val.Addr("GALICE")}))

	events := l.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "mint", events[0].Topic)
	assert.Equal(t, "transfer", events[1].Topic)
	assert.Equal(t, "burn", events[2].Topic)

	// Seq numbers are strictly increasing in publish order
	assert.Less(t, events[0].Seq, events[1].Seq)
	assert.Less(t, events[1].Seq, events[2].Seq)
}

func TestLog_EventsReturnsCopy(t *testing.T) {
	l := NewLog(&countingSeq{})
	require.NoError(t, l.Publish("mint", val.I64(1)))

	events := l.Events()
	events[0].Topic = "mutated"

	assert.Equal(t, "mint", l.Events()[0].Topic, "log records are immutable")
}

func TestLog_SinkReceivesEvents(t *testing.T) {
	sink := &capturingSink{}
	l := NewLog(&countingSeq{}, WithSink(sink))

	require.NoError(t, l.Publish("pause", val.Bool(true)))

	require.Len(t, sink.got, 1)
	assert.Equal(t, "pause", sink.got[0].Topic)
}

func TestLog_SinkFailureRollsBack(t *testing.T) {
	l := NewLog(&countingSeq{}, WithSink(failingSink{}))

	err := l.Publish("mint", val.I64(1))
	require.Error(t, err)
	assert.Equal(t, 0, l.Len(), "failed publish must not leave a partial append")
}

func TestLog_UnencodablePayloadRejected(t *testing.T) {
	l := NewLog(&countingSeq{})

	err := l.Publish("bad", val.Vec{nil})
	assert.True(t, fault.Is(err, fault.CodeSerialization))
	assert.Equal(t, 0, l.Len())
}
