package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/fluxgraph/internal/tensor"
)

func TestEchoRoundTripViaStream(t *testing.T) {
	msg := &Message{Type: EchoRequest, Echo: &EchoBody{Buf: []byte("abc")}}

	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, msg))

	got, err := ReadMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, EchoRequest, got.Type)
	assert.Equal(t, []byte("abc"), got.Echo.Buf)
}

func TestFileFinishNotifyRoundTrip(t *testing.T) {
	msg := &Message{
		Type: FileFinishNotify,
		FileFinishNotify: &FileFinishNotifyBody{
			File:       "part-0001",
			Loss:       0.125,
			LossWeight: 1.0,
		},
	}

	body, err := Encode(msg)
	require.NoError(t, err)
	got, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, "part-0001", got.FileFinishNotify.File)
	assert.InDelta(t, 0.125, got.FileFinishNotify.Loss, 1e-9)
}

func TestPullRequestRoundTrip(t *testing.T) {
	pr := tensor.NewPullRequest(true)
	pr.AddTsr("w")
	pr.AddSrmID("emb", 7)

	msg := &Message{Type: PullRequest, PullRequest: pr}
	body, err := Encode(msg)
	require.NoError(t, err)
	got, err := Decode(body)
	require.NoError(t, err)

	_, has := got.PullRequest.TsrSet["w"]
	assert.True(t, has)
	_, has = got.PullRequest.SrmMap["emb"][7]
	assert.True(t, has)
}

func TestNoBodyMessagesRoundTrip(t *testing.T) {
	for _, typ := range []Type{HeartBeatNotify, FileRequest, ModelSaveResponse, TerminationNotify} {
		body, err := Encode(&Message{Type: typ})
		require.NoError(t, err)
		got, err := Decode(body)
		require.NoError(t, err)
		assert.Equal(t, typ, got.Type)
	}
}

func TestRequiresResponse(t *testing.T) {
	assert.True(t, EchoRequest.RequiresResponse())
	assert.True(t, PullRequest.RequiresResponse())
	assert.False(t, EchoResponse.RequiresResponse())
	assert.False(t, HeartBeatNotify.RequiresResponse())
}

func TestBeginMessageFrameLengthMatchesBody(t *testing.T) {
	msg := &Message{Type: EchoRequest, Echo: &EchoBody{Buf: []byte("hello")}}
	body, err := Encode(msg)
	require.NoError(t, err)

	framed, err := BeginMessage(msg)
	require.NoError(t, err)
	require.Len(t, framed, 4+len(body))
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := Decode([]byte{0xff, 0xff, 0xff, 0xff})
	assert.Error(t, err)
}
