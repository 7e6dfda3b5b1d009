package connection

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_connectionHeader(t *testing.T) {
	ch := connectionHeader{
		Type:    uint16(ConnCollective),
		SrcPort: 9999,
		SrcIPv4: 0x7f080808,
	}
	b := &bytes.Buffer{}
	require.NoError(t, ch.Encode(b))
	var ch2 connectionHeader
	require.NoError(t, ch2.Decode(b))
	assert.Equal(t, ch, ch2)
}

func Test_MessageHeader(t *testing.T) {
	b := &bytes.Buffer{}
	name := "rs::3::1"
	mh := MessageHeader{NameLength: uint32(len(name)), Name: []byte(name), Flags: WaitRecvBuf}
	require.NoError(t, mh.Encode(b))
	require.NoError(t, mh.Encode(b))

	var got MessageHeader
	require.NoError(t, got.Decode(b))
	assert.True(t, got.HasFlag(WaitRecvBuf))
	assert.Equal(t, name, string(got.Name))

	assert.Error(t, got.Expect(b, "ag::3::1"))
}

func Test_Message(t *testing.T) {
	b := &bytes.Buffer{}
	bs := []byte("123456")
	require.NoError(t, Message{Length: uint32(len(bs)), Data: bs}.Encode(b))

	var m Message
	require.NoError(t, m.Decode(b))
	assert.Equal(t, uint32(6), m.Length)
	assert.Equal(t, "123456", string(m.Data))
}

func Test_long_Message(t *testing.T) {
	b := &bytes.Buffer{}
	payload := strings.Repeat("01234567", 2<<20)
	require.NoError(t, Message{Length: uint32(len(payload)), Data: []byte(payload)}.Encode(b))

	var m Message
	require.NoError(t, m.Decode(b))
	assert.Equal(t, len(payload), int(m.Length))
	assert.Equal(t, payload, string(m.Data))
}

func Test_Message_ReadInto(t *testing.T) {
	b := &bytes.Buffer{}
	require.NoError(t, Message{Length: 4, Data: []byte("abcd")}.Encode(b))
	require.NoError(t, Message{Length: 4, Data: []byte("efgh")}.Encode(b))

	m := Message{Length: 4, Data: make([]byte, 4)}
	require.NoError(t, m.ReadInto(b))
	assert.Equal(t, "abcd", string(m.Data))

	short := Message{Length: 2, Data: make([]byte, 2)}
	assert.ErrorIs(t, short.ReadInto(b), errUnexpectedMessageLength)
}
