package docproxy

import "sync"

// pageCache is a small LRU over extracted page text runs. Geometry
// resolution re-reads the same page for every search term, and run
// extraction is the expensive step.
type pageCache struct {
	mu       sync.Mutex
	capacity int
	items    map[int]*cacheNode
	head     *cacheNode // most recently used
	tail     *cacheNode // least recently used
}

type cacheNode struct {
	page int
	runs []TextRun
	prev *cacheNode
	next *cacheNode
}

func newPageCache(capacity int) *pageCache {
	if capacity <= 0 {
		capacity = 16
	}

	c := &pageCache{
		capacity: capacity,
		items:    make(map[int]*cacheNode),
		head:     &cacheNode{},
		tail:     &cacheNode{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

func (c *pageCache) get(page int) ([]TextRun, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.items[page]
	if !ok {
		return nil, false
	}
	c.moveToFront(node)
	return node.runs, true
}

func (c *pageCache) put(page int, runs []TextRun) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if node, ok := c.items[page]; ok {
		node.runs = runs
		c.moveToFront(node)
		return
	}

	node := &cacheNode{page: page, runs: runs}
	c.items[page] = node
	c.insertAfterHead(node)

	if len(c.items) > c.capacity {
		oldest := c.tail.prev
		c.unlink(oldest)
		delete(c.items, oldest.page)
	}
}

func (c *pageCache) moveToFront(node *cacheNode) {
	c.unlink(node)
	c.insertAfterHead(node)
}

func (c *pageCache) insertAfterHead(node *cacheNode) {
	node.prev = c.head
	node.next = c.head.next
	c.head.next.prev = node
	c.head.next = node
}

func (c *pageCache) unlink(node *cacheNode) {
	node.prev.next = node.next
	node.next.prev = node.prev
}
