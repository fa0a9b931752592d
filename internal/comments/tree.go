// comments — построение двухуровневого дерева комментариев из плоского
// списка, который отдаёт API (в порядке API, без пересортировки).
//
// Поддерживается только одна глубина вложенности: ответ попадает в дерево,
// если его родитель — уже встреченный комментарий верхнего уровня. Ответы на
// ответы, ответы на неизвестный id и ответы, пришедшие раньше родителя,
// отбрасываются.
package comments

import "github.com/pribylovaa/techsite/internal/models"

// Node — комментарий верхнего уровня и его ответы в порядке входа.
type Node struct {
	models.Comment
	Replies []models.Comment `json:"replies"`
}

// Tree — упорядоченное отображение id верхнего комментария -> Node.
type Tree struct {
	order []string
	nodes map[string]*Node
}

// Build строит дерево за один проход. Никогда не завершается ошибкой.
//
// Повторный id верхнего уровня заменяет узел (его ответы сбрасываются),
// но узел остаётся на исходной позиции.
func Build(list []models.Comment) Tree {
	t := Tree{nodes: make(map[string]*Node, len(list))}

	for _, c := range list {
		if c.IsTopLevel() {
			if _, seen := t.nodes[c.ID]; !seen {
				t.order = append(t.order, c.ID)
			}
			t.nodes[c.ID] = &Node{Comment: c, Replies: []models.Comment{}}
			continue
		}

		if parent, ok := t.nodes[*c.ParentID]; ok {
			parent.Replies = append(parent.Replies, c)
		}
	}

	return t
}

// Roots возвращает узлы верхнего уровня в порядке первого появления.
func (t Tree) Roots() []Node {
	out := make([]Node, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.nodes[id])
	}

	return out
}

// Node возвращает узел верхнего уровня по id.
func (t Tree) Node(id string) (Node, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return Node{}, false
	}

	return *n, true
}

// Len — число узлов верхнего уровня.
func (t Tree) Len() int { return len(t.order) }

// Count — число комментариев в дереве (верхние + ответы).
func (t Tree) Count() int {
	n := 0
	for _, node := range t.nodes {
		n += 1 + len(node.Replies)
	}

	return n
}
