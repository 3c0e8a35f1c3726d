package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHistory_AppendDoesNotAlias(t *testing.T) {
	base := NewHistory(HumanTurn("one"))
	left := base.Append(AssistantTurn("left"))
	right := base.Append(AssistantTurn("right"))

	require.Equal(t, 1, base.Len())
	require.Equal(t, "left", left.Turns()[1].Text())
	require.Equal(t, "right", right.Turns()[1].Text())
}

func TestHistory_PreservesInsertionOrderWithoutDedup(t *testing.T) {
	h := History{}.Append(HumanTurn("same"), HumanTurn("same"), AssistantTurn("reply"))

	turns := h.Turns()
	require.Len(t, turns, 3)
	require.Equal(t, TurnHuman, turns[0].Role)
	require.Equal(t, TurnHuman, turns[1].Role)
	require.Equal(t, TurnAssistant, turns[2].Role)

	last, ok := h.Last()
	require.True(t, ok)
	require.Equal(t, "reply", last.Text())
}

func TestHistory_TurnsReturnsCopy(t *testing.T) {
	h := NewHistory(HumanTurn("original"))
	turns := h.Turns()
	turns[0] = HumanTurn("changed")

	require.Equal(t, "original", h.Turns()[0].Text())
}

func TestHistory_EmptyHistory(t *testing.T) {
	var h History
	require.True(t, h.Empty())
	_, ok := h.Last()
	require.False(t, ok)
	require.Empty(t, h.MessageParams())
}

func TestTurn_TextJoinsSegments(t *testing.T) {
	require.Equal(t, "a\nb", HumanTurn("a", "b").Text())
}
