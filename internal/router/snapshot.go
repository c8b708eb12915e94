package router

import (
	"routeScope/internal/model"
)

// edge is a directed step out of a token through one pool.
type edge struct {
	pool    int
	to      string
	forward bool // base -> quote
}

// snapshot is an immutable view of the pool inventory. A new snapshot is built
// on every update and published atomically, so searches never observe a
// partially merged index.
type snapshot struct {
	exchanges  []string
	byExchange map[string][]model.Pool
	position   map[string]poolPosition

	// pools is the flattened enumeration order: exchanges in first-seen order,
	// pools within an exchange in first-seen order.
	pools     []model.Pool
	adjacency map[string][]edge
}

type poolPosition struct {
	exchange string
	offset   int
}

func emptySnapshot() *snapshot {
	return &snapshot{
		byExchange: make(map[string][]model.Pool),
		position:   make(map[string]poolPosition),
		adjacency:  make(map[string][]edge),
	}
}

// merge returns a new snapshot with pools merged in by identity. Existing
// pools are replaced in place; new pools are appended to their exchange.
func (s *snapshot) merge(pools []model.Pool) *snapshot {
	next := &snapshot{
		exchanges:  append([]string(nil), s.exchanges...),
		byExchange: make(map[string][]model.Pool, len(s.byExchange)),
		position:   make(map[string]poolPosition, len(s.position)+len(pools)),
	}
	for name, list := range s.byExchange {
		next.byExchange[name] = append([]model.Pool(nil), list...)
	}
	for key, pos := range s.position {
		next.position[key] = pos
	}

	for _, pool := range pools {
		key := pool.Key()
		if pos, ok := next.position[key]; ok {
			next.byExchange[pos.exchange][pos.offset] = pool
			continue
		}
		list, ok := next.byExchange[pool.Exchange]
		if !ok {
			next.exchanges = append(next.exchanges, pool.Exchange)
		}
		next.position[key] = poolPosition{exchange: pool.Exchange, offset: len(list)}
		next.byExchange[pool.Exchange] = append(list, pool)
	}

	next.build()
	return next
}

func (s *snapshot) build() {
	s.pools = make([]model.Pool, 0, len(s.position))
	s.adjacency = make(map[string][]edge)
	for _, name := range s.exchanges {
		for _, pool := range s.byExchange[name] {
			idx := len(s.pools)
			s.pools = append(s.pools, pool)

			// Pools are validated before merge, so the pair always splits.
			base, quote, _ := pool.Tokens()
			s.adjacency[base] = append(s.adjacency[base], edge{pool: idx, to: quote, forward: true})
			s.adjacency[quote] = append(s.adjacency[quote], edge{pool: idx, to: base, forward: false})
		}
	}
}
