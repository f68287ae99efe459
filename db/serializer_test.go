package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elyby/yggdrasil/model"
)

func TestZlibEncoder(t *testing.T) {
	serializer := NewZlibEncoder(&JsonSerializer{})

	session := &model.Session{
		AccessToken: "token",
		ClientToken: "client",
		AccountId:   "account1",
		CreatedAt:   time.Unix(1614307134, 0).UTC(),
		Status:      model.SessionValid,
	}

	serialized, err := serializer.Serialize(session)
	require.NoError(t, err)

	var restored *model.Session
	require.NoError(t, serializer.Deserialize(serialized, &restored))
	require.Equal(t, session, restored)

	t.Run("not a zlib stream", func(t *testing.T) {
		var target interface{}
		require.Error(t, serializer.Deserialize([]byte("plain bytes"), &target))
	})
}
