package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/valkey-io/valkey-go"
	"github.com/valkey-io/valkey-go/mock"
	"go.uber.org/mock/gomock"

	"github.com/yanqian/dermaai/internal/domain/chatbot"
	"github.com/yanqian/dermaai/internal/domain/routine"
)

func newMockedStore(t *testing.T, ttl time.Duration) (*ValkeyStore, *mock.Client) {
	t.Helper()
	client := mock.NewClient(gomock.NewController(t))
	return NewValkeyStore(client, "", ttl), client
}

func TestValkeyStore_AppendTurnTrimsAndExpires(t *testing.T) {
	store, client := newMockedStore(t, time.Hour)
	turn := chatbot.ChatTurn{Role: chatbot.RoleUser, Content: "hi", CreatedAt: time.Unix(100, 0).UTC()}
	payload, err := json.Marshal(turn)
	require.NoError(t, err)

	key := "dermaai:session:s1:turns"
	client.EXPECT().DoMulti(gomock.Any(),
		mock.Match("RPUSH", key, string(payload)),
		mock.Match("LTRIM", key, "-20", "-1"),
		mock.Match("EXPIRE", key, "3600"),
	).Return([]valkey.ValkeyResult{
		mock.Result(mock.ValkeyInt64(1)),
		mock.Result(mock.ValkeyString("OK")),
		mock.Result(mock.ValkeyInt64(1)),
	})

	require.NoError(t, store.AppendTurn(context.Background(), "s1", turn, 20))
}

func TestValkeyStore_AppendTurnWithoutLimitOrTTL(t *testing.T) {
	store, client := newMockedStore(t, 0)
	turn := chatbot.ChatTurn{Role: chatbot.RoleBot, Content: "ok", CreatedAt: time.Unix(5, 0).UTC()}
	payload, err := json.Marshal(turn)
	require.NoError(t, err)

	client.EXPECT().DoMulti(gomock.Any(),
		mock.Match("RPUSH", "dermaai:session:s1:turns", string(payload)),
	).Return([]valkey.ValkeyResult{mock.ErrorResult(errors.New("connection reset"))})

	err = store.AppendTurn(context.Background(), "s1", turn, 0)
	require.ErrorContains(t, err, "connection reset")
}

func TestValkeyStore_TurnsDecodesInOrder(t *testing.T) {
	store, client := newMockedStore(t, time.Hour)
	first, err := json.Marshal(chatbot.ChatTurn{Role: chatbot.RoleUser, Content: "a"})
	require.NoError(t, err)
	second, err := json.Marshal(chatbot.ChatTurn{Role: chatbot.RoleBot, Content: "b"})
	require.NoError(t, err)

	client.EXPECT().Do(gomock.Any(), mock.Match("LRANGE", "dermaai:session:s1:turns", "0", "-1")).
		Return(mock.Result(mock.ValkeyArray(mock.ValkeyString(string(first)), mock.ValkeyString(string(second)))))

	turns, err := store.Turns(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, "a", turns[0].Content)
	require.Equal(t, chatbot.RoleBot, turns[1].Role)
}

func TestValkeyStore_TurnsMissingKey(t *testing.T) {
	store, client := newMockedStore(t, time.Hour)
	client.EXPECT().Do(gomock.Any(), mock.Match("LRANGE", "dermaai:session:s2:turns", "0", "-1")).
		Return(mock.Result(mock.ValkeyNil()))

	turns, err := store.Turns(context.Background(), "s2")
	require.NoError(t, err)
	require.Empty(t, turns)
}

func TestValkeyStore_TurnsRejectsCorruptEntry(t *testing.T) {
	store, client := newMockedStore(t, time.Hour)
	client.EXPECT().Do(gomock.Any(), mock.Match("LRANGE", "dermaai:session:s1:turns", "0", "-1")).
		Return(mock.Result(mock.ValkeyArray(mock.ValkeyString("{not json"))))

	_, err := store.Turns(context.Background(), "s1")
	require.ErrorContains(t, err, "decode turn")
}

func TestValkeyStore_PlanRoundTrip(t *testing.T) {
	store, client := newMockedStore(t, 1500*time.Millisecond)
	plan := routine.Plan{SkinAnalysis: "dry", MorningRoutine: []string{"cleanse"}}
	payload, err := json.Marshal(plan)
	require.NoError(t, err)

	key := "dermaai:session:s1:plan"
	client.EXPECT().Do(gomock.Any(), mock.Match("SET", key, string(payload), "EX", "1")).
		Return(mock.Result(mock.ValkeyString("OK")))
	client.EXPECT().Do(gomock.Any(), mock.Match("GET", key)).
		Return(mock.Result(mock.ValkeyString(string(payload))))

	ctx := context.Background()
	require.NoError(t, store.SavePlan(ctx, "s1", plan))
	got, ok, err := store.LoadPlan(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, plan, got)
}

func TestValkeyStore_SavePlanWithoutTTL(t *testing.T) {
	store, client := newMockedStore(t, 0)
	payload, err := json.Marshal(routine.Plan{SkinAnalysis: "oily"})
	require.NoError(t, err)

	client.EXPECT().Do(gomock.Any(), mock.Match("SET", "dermaai:session:s1:plan", string(payload))).
		Return(mock.Result(mock.ValkeyString("OK")))

	require.NoError(t, store.SavePlan(context.Background(), "s1", routine.Plan{SkinAnalysis: "oily"}))
}

func TestValkeyStore_LoadPlanMissing(t *testing.T) {
	store, client := newMockedStore(t, time.Hour)
	client.EXPECT().Do(gomock.Any(), mock.Match("GET", "dermaai:session:s9:plan")).
		Return(mock.Result(mock.ValkeyNil()))

	_, ok, err := store.LoadPlan(context.Background(), "s9")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestValkeyStore_ClearAndPing(t *testing.T) {
	client := mock.NewClient(gomock.NewController(t))
	store := NewValkeyStore(client, "test", time.Hour)

	client.EXPECT().Do(gomock.Any(), mock.Match("DEL", "test:session:s1:turns")).
		Return(mock.Result(mock.ValkeyInt64(1)))
	client.EXPECT().Do(gomock.Any(), mock.Match("DEL", "test:session:s1:turns", "test:session:s1:plan")).
		Return(mock.Result(mock.ValkeyInt64(2)))
	client.EXPECT().Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(errors.New("down")))

	ctx := context.Background()
	require.NoError(t, store.ClearTurns(ctx, "s1"))
	require.NoError(t, store.Clear(ctx, "s1"))
	require.ErrorContains(t, store.Ping(ctx), "down")
}
