package comments

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/techsite/internal/models"
)

func top(id string) models.Comment {
	return models.Comment{ID: id, BlogID: "b1", Content: "c" + id}
}

func reply(id, parent string) models.Comment {
	p := parent
	return models.Comment{ID: id, BlogID: "b1", Content: "r" + id, ParentID: &p}
}

func ids(list []models.Comment) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.ID)
	}
	return out
}

func rootIDs(t Tree) []string {
	var out []string
	for _, n := range t.Roots() {
		out = append(out, n.ID)
	}
	return out
}

func TestBuild_Empty(t *testing.T) {
	t.Parallel()

	tree := Build(nil)
	require.Zero(t, tree.Len())
	require.Empty(t, tree.Roots())

	_, ok := tree.Node("x")
	require.False(t, ok)
}

func TestBuild_TwoLevels(t *testing.T) {
	t.Parallel()

	tree := Build([]models.Comment{
		top("1"),
		reply("2", "1"),
		top("3"),
		reply("4", "1"),
		reply("5", "3"),
	})

	require.Equal(t, []string{"1", "3"}, rootIDs(tree))

	n1, ok := tree.Node("1")
	require.True(t, ok)
	require.Equal(t, []string{"2", "4"}, ids(n1.Replies))

	n3, ok := tree.Node("3")
	require.True(t, ok)
	require.Equal(t, []string{"5"}, ids(n3.Replies))

	require.Equal(t, 5, tree.Count())
}

func TestBuild_DropsOrphans(t *testing.T) {
	t.Parallel()

	tree := Build([]models.Comment{
		reply("early", "1"), // раньше родителя
		top("1"),
		reply("2", "1"),
		reply("deep", "2"),    // ответ на ответ
		reply("lost", "nope"), // неизвестный родитель
	})

	require.Equal(t, []string{"1"}, rootIDs(tree))

	n1, _ := tree.Node("1")
	require.Equal(t, []string{"2"}, ids(n1.Replies))
	require.Equal(t, 2, tree.Count())

	for _, id := range []string{"early", "deep", "lost", "2"} {
		_, ok := tree.Node(id)
		require.False(t, ok, id)
	}
}

func TestBuild_TopLevelWithoutRepliesHasEmptySlice(t *testing.T) {
	t.Parallel()

	n, ok := Build([]models.Comment{top("1")}).Node("1")
	require.True(t, ok)
	require.NotNil(t, n.Replies)
	require.Empty(t, n.Replies)
}

func TestBuild_DuplicateTopLevelKeepsPosition(t *testing.T) {
	t.Parallel()

	dup := top("1")
	dup.Content = "edited"

	tree := Build([]models.Comment{
		top("1"),
		reply("2", "1"),
		top("3"),
		dup,
		reply("4", "1"),
	})

	require.Equal(t, []string{"1", "3"}, rootIDs(tree))

	n1, _ := tree.Node("1")
	require.Equal(t, "edited", n1.Content)
	require.Equal(t, []string{"4"}, ids(n1.Replies))
}

func TestBuild_DoesNotResortInput(t *testing.T) {
	t.Parallel()

	tree := Build([]models.Comment{top("9"), top("2"), top("5")})
	require.Equal(t, []string{"9", "2", "5"}, rootIDs(tree))
}

// Случайные последовательности: каждый ответ на известный верхний
// комментарий попадает в его replies в исходном порядке; прочие ответы
// не появляются нигде.
func TestBuild_RandomSequences(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(40)
		list := make([]models.Comment, 0, n)
		topSeen := map[string]bool{}
		want := map[string][]string{}
		kept := map[string]bool{}

		for i := 0; i < n; i++ {
			id := fmt.Sprintf("c%d", i)
			if rng.Intn(3) == 0 {
				list = append(list, top(id))
				topSeen[id] = true
				want[id] = nil
				continue
			}

			parent := fmt.Sprintf("c%d", rng.Intn(n+5))
			list = append(list, reply(id, parent))
			if topSeen[parent] {
				want[parent] = append(want[parent], id)
				kept[id] = true
			}
		}

		tree := Build(list)
		require.Equal(t, len(want), tree.Len())

		present := map[string]bool{}
		for _, node := range tree.Roots() {
			present[node.ID] = true
			got := ids(node.Replies)
			if len(want[node.ID]) == 0 {
				require.Empty(t, got)
			} else {
				require.Equal(t, want[node.ID], got)
			}
			for _, r := range node.Replies {
				present[r.ID] = true
			}
		}

		for _, c := range list {
			if c.IsTopLevel() {
				continue
			}
			require.Equal(t, kept[c.ID], present[c.ID], c.ID)
		}
	}
}
