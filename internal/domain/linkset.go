package domain

// LinkSet is a deduplicating set of absolute URLs that remembers insertion order.
type LinkSet struct {
	seen  map[string]struct{}
	links []string
}

func NewLinkSet() *LinkSet {
	return &LinkSet{seen: make(map[string]struct{})}
}

// Add inserts url and reports whether it was new.
func (s *LinkSet) Add(url string) bool {
	if url == "" {
		return false
	}
	if _, ok := s.seen[url]; ok {
		return false
	}
	s.seen[url] = struct{}{}
	s.links = append(s.links, url)
	return true
}

func (s *LinkSet) Contains(url string) bool {
	_, ok := s.seen[url]
	return ok
}

func (s *LinkSet) Len() int {
	return len(s.links)
}

// Links returns a copy of the set in insertion order.
func (s *LinkSet) Links() []string {
	out := make([]string, len(s.links))
	copy(out, s.links)
	return out
}
