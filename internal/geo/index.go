package geo

import (
	"fmt"
	"math"
	"sync"

	"github.com/dhconnelly/rtreego"

	"github.com/ifjames/kolekta-match/internal/domain"
)

const (
	rtreeDimensions  = 2
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
	rtreeTolerance   = 0.0001
)

// Entry is a request location held in the index.
type Entry struct {
	RequestID string
	Location  domain.Coordinate
}

// spatialItem wraps an Entry for R-tree indexing.
type spatialItem struct {
	*Entry
	rect *rtreego.Rect
}

func (si *spatialItem) Bounds() *rtreego.Rect {
	return si.rect
}

// Index is a thread-safe R-tree over request locations. It serves as the
// exact-distance prefilter complementing the spatial-key bucket scan: a
// radius query returns candidate request ids without scanning every open
// request.
type Index struct {
	mu    sync.RWMutex
	tree  *rtreego.Rtree
	items map[string]*spatialItem // request_id → item, for removal
}

// NewIndex creates an empty Index.
func NewIndex() *Index {
	return &Index{
		tree:  rtreego.NewTree(rtreeDimensions, rtreeMinChildren, rtreeMaxChildren),
		items: make(map[string]*spatialItem),
	}
}

// Insert adds a request location to the index. Inserting an id that is
// already present replaces its previous location.
func (x *Index) Insert(requestID string, loc domain.Coordinate) {
	point := rtreego.Point{loc.Lat, loc.Lon}
	item := &spatialItem{
		Entry: &Entry{RequestID: requestID, Location: loc},
		rect:  point.ToRect(rtreeTolerance),
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if prev, ok := x.items[requestID]; ok {
		x.tree.Delete(prev)
	}
	x.tree.Insert(item)
	x.items[requestID] = item
}

// Remove deletes a request location from the index. Removing an unknown id
// is a no-op.
func (x *Index) Remove(requestID string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	item, ok := x.items[requestID]
	if !ok {
		return
	}
	x.tree.Delete(item)
	delete(x.items, requestID)
}

// SearchRadius returns the entries within radiusKm of center. The R-tree is
// queried with a bounding box and results are filtered by true haversine
// distance.
func (x *Index) SearchRadius(center domain.Coordinate, radiusKm float64) ([]Entry, error) {
	if radiusKm <= 0 {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("radius must be positive, got %v", radiusKm),
		}
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	deg := (radiusKm / earthRadiusKm) * (180 / math.Pi)
	bounds, err := rtreego.NewRect(
		rtreego.Point{center.Lat - deg, center.Lon - deg},
		[]float64{2 * deg, 2 * deg},
	)
	if err != nil {
		return nil, fmt.Errorf("invalid radius search: %w", err)
	}

	results := x.tree.SearchIntersect(bounds)

	entries := make([]Entry, 0, len(results))
	for _, result := range results {
		item, ok := result.(*spatialItem)
		if !ok || item.Entry == nil {
			continue
		}
		if Distance(center, item.Location) <= radiusKm {
			entries = append(entries, *item.Entry)
		}
	}
	return entries, nil
}

// Nearest returns up to n entries closest to the given coordinate.
func (x *Index) Nearest(c domain.Coordinate, n int) []Entry {
	x.mu.RLock()
	defer x.mu.RUnlock()

	results := x.tree.NearestNeighbors(n, rtreego.Point{c.Lat, c.Lon})

	entries := make([]Entry, 0, len(results))
	for _, result := range results {
		item, ok := result.(*spatialItem)
		if !ok || item.Entry == nil {
			continue
		}
		entries = append(entries, *item.Entry)
	}
	return entries
}

// Len returns the number of entries in the index.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.items)
}
