package socket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageMarshalSetDisabled(t *testing.T) {
	data, err := json.Marshal(Message{Kind: KindSetDisabled, Timer: 0, Disabled: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"set_disabled":[0,true]}`, string(data))
}

func TestMessageMarshalBareCommands(t *testing.T) {
	for _, kind := range []string{KindGetIdleTime, KindStatus, KindQuit} {
		data, err := json.Marshal(Message{Kind: kind})
		require.NoError(t, err)
		assert.JSONEq(t, `{"`+kind+`":null}`, string(data))
	}
}

func TestMessageMarshalUnknownKind(t *testing.T) {
	_, err := json.Marshal(Message{Kind: "reboot"})
	require.Error(t, err)
}

func TestMessageUnmarshalSetDisabled(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"set_disabled":[2,false]}`), &msg))
	assert.Equal(t, KindSetDisabled, msg.Kind)
	assert.Equal(t, 2, msg.Timer)
	assert.False(t, msg.Disabled)
}

func TestMessageUnmarshalRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"unknown command", `{"reboot":null}`},
		{"two keys", `{"quit":null,"status":null}`},
		{"empty object", `{}`},
		{"missing arguments", `{"set_disabled":null}`},
		{"short arguments", `{"set_disabled":[1]}`},
		{"wrong index type", `{"set_disabled":["first",true]}`},
		{"wrong flag type", `{"set_disabled":[0,"yes"]}`},
		{"not an object", `"quit"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var msg Message
			assert.Error(t, json.Unmarshal([]byte(tc.in), &msg))
		})
	}
}

func TestReplyOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(Reply{OK: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))

	data, err = json.Marshal(ErrorReply(assert.AnError))
	require.NoError(t, err)
	var decoded Reply
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.False(t, decoded.OK)
	assert.Equal(t, assert.AnError.Error(), decoded.Error)
}
