package binnode

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() *Node {
	return &Node{
		Tag:   "iq",
		Attrs: map[string]string{"id": "1"},
		Content: []Node{
			{Tag: "result", Content: []byte(`{"ok":true}`)},
			{Tag: "item", Attrs: map[string]string{"n": "a"}},
			{Tag: "item", Attrs: map[string]string{"n": "b"}},
		},
	}
}

func TestChild(t *testing.T) {
	root := sampleTree()

	got := Child(root, "item")
	require.NotNil(t, got)
	assert.Equal(t, "a", got.Attr("n"))

	assert.Nil(t, Child(root, "missing"))
	assert.Nil(t, Child(nil, "item"))
}

func TestChildren(t *testing.T) {
	root := sampleTree()

	items := Children(root, "item")
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Attr("n"))
	assert.Equal(t, "b", items[1].Attr("n"))

	assert.Empty(t, Children(nil, "item"))
	assert.Empty(t, Children(Child(root, "result"), "item"), "byte content has no children")
}

func TestAllChildren_PointsIntoTree(t *testing.T) {
	root := sampleTree()

	for _, c := range AllChildren(root) {
		c.SetAttr("seen", "yes")
	}

	assert.Equal(t, "yes", Child(root, "result").Attr("seen"))
	assert.Equal(t, "yes", Children(root, "item")[1].Attr("seen"))
}

func TestAttr_NilSafe(t *testing.T) {
	var n *Node
	assert.Equal(t, "", n.Attr("x"))
	assert.Nil(t, n.Bytes())
	assert.Equal(t, "", (&Node{}).Attr("x"))
}

func TestBytes(t *testing.T) {
	assert.Equal(t, []byte("abc"), (&Node{Content: []byte("abc")}).Bytes())
	assert.Equal(t, []byte("abc"), (&Node{Content: "abc"}).Bytes())
	assert.Nil(t, (&Node{Content: []Node{}}).Bytes())
}

func TestJSON_Fixture(t *testing.T) {
	input := `{
		"tag": "iq",
		"attrs": {"type": "result"},
		"content": [
			{"tag": "result", "content": "{\"data\":{}}"},
			{"tag": "empty"}
		]
	}`

	var n Node
	require.NoError(t, json.Unmarshal([]byte(input), &n))

	assert.Equal(t, "iq", n.Tag)
	assert.Equal(t, "result", n.Attr("type"))
	assert.Equal(t, `{"data":{}}`, string(Child(&n, "result").Bytes()))
	assert.Nil(t, Child(&n, "empty").Content)

	out, err := json.Marshal(n)
	require.NoError(t, err)

	var again Node
	require.NoError(t, json.Unmarshal(out, &again))
	assert.Equal(t, n, again)
}

func TestJSON_RejectsScalarContent(t *testing.T) {
	var n Node
	err := json.Unmarshal([]byte(`{"tag":"x","content":42}`), &n)
	assert.Error(t, err)
}
