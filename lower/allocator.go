package lower

import "github.com/aureliago/tplcore/ident"

// idAllocator assigns deterministic NodeIds (spec 4.2 step 1): each parent
// keeps a separate child counter per kind (element/text/comment), so
// interleaved text and element children each get their own dense,
// zero-based index within their kind.
type idAllocator struct {
	elementCount map[ident.NodeId]int
	textCount    map[ident.NodeId]int
	commentCount map[ident.NodeId]int
}

func newIDAllocator() *idAllocator {
	return &idAllocator{
		elementCount: map[ident.NodeId]int{},
		textCount:    map[ident.NodeId]int{},
		commentCount: map[ident.NodeId]int{},
	}
}

func (a *idAllocator) nextElement(parent ident.NodeId) ident.NodeId {
	i := a.elementCount[parent]
	a.elementCount[parent] = i + 1
	return parent.Child(i)
}

func (a *idAllocator) nextText(parent ident.NodeId) ident.NodeId {
	i := a.textCount[parent]
	a.textCount[parent] = i + 1
	return parent.TextChild(i)
}

func (a *idAllocator) nextComment(parent ident.NodeId) ident.NodeId {
	i := a.commentCount[parent]
	a.commentCount[parent] = i + 1
	return parent.CommentChild(i)
}
