package topology

import (
	"fmt"

	"github.com/HerbHall/ponplan/pkg/models"
	"gonum.org/v1/gonum/graph/simple"
)

// Candidate list sizes per hierarchy level.
const (
	topOLTCandidates   = 3
	topMSCandidates    = 5
	topSUBMSCandidates = 5
)

// AttachmentRecommendation ranks where a new FDB or customer should attach.
//
// OptimalPath is the greedy per-level pick (best OLT, best MS, best SUBMS)
// and does not by itself guarantee the three devices are linked.
// PathConnected reports whether they are, judged from ParentID links, and
// ConnectedPath is the best chain that really exists in the hierarchy.
// Both stay empty/false when no snapshot carries a ParentID.
type AttachmentRecommendation struct {
	BestOLT       []SlotInfo `json:"best_olt_connections"`
	BestMS        []SlotInfo `json:"best_ms_connections"`
	BestSUBMS     []SlotInfo `json:"best_subms_connections"`
	OptimalPath   []SlotInfo `json:"optimal_path"`
	PathConnected bool       `json:"path_connected"`
	ConnectedPath []SlotInfo `json:"connected_path"`
}

// RecommendAttachmentPoints ranks each device level by free ports and
// assembles the greedy OLT -> MS -> SUBMS path, stopping at the first level
// with no candidate. Devices with no free port are never candidates.
func (a *Allocator) RecommendAttachmentPoints(devices []DeviceSnapshot) (AttachmentRecommendation, error) {
	infos, err := a.SlotsAll(devices)
	if err != nil {
		return AttachmentRecommendation{}, err
	}

	groups := make(map[models.DeviceType][]SlotInfo, 3)
	for i := range infos {
		if infos[i].AvailablePorts > 0 {
			groups[infos[i].DeviceType] = append(groups[infos[i].DeviceType], infos[i])
		}
	}
	for dt := range groups {
		rankByAvailable(groups[dt])
	}

	rec := AttachmentRecommendation{
		BestOLT:       topN(groups[models.DeviceTypeOLT], topOLTCandidates),
		BestMS:        topN(groups[models.DeviceTypeMS], topMSCandidates),
		BestSUBMS:     topN(groups[models.DeviceTypeSUBMS], topSUBMSCandidates),
		OptimalPath:   []SlotInfo{},
		ConnectedPath: []SlotInfo{},
	}
	for _, level := range [][]SlotInfo{rec.BestOLT, rec.BestMS, rec.BestSUBMS} {
		if len(level) == 0 {
			break
		}
		rec.OptimalPath = append(rec.OptimalPath, level[0])
	}

	h, err := newHierarchy(infos)
	if err != nil {
		return AttachmentRecommendation{}, err
	}
	if h.linked {
		rec.PathConnected = h.isChain(rec.OptimalPath)
		rec.ConnectedPath = h.bestChain(groups[models.DeviceTypeOLT])
	}
	return rec, nil
}

func topN(infos []SlotInfo, n int) []SlotInfo {
	if len(infos) > n {
		infos = infos[:n]
	}
	out := make([]SlotInfo, len(infos))
	copy(out, infos)
	return out
}

// hierarchy is the parent -> child graph of a device set.
type hierarchy struct {
	g      *simple.DirectedGraph
	ids    map[string]int64
	infos  []SlotInfo
	linked bool
}

func newHierarchy(infos []SlotInfo) (*hierarchy, error) {
	h := &hierarchy{
		g:     simple.NewDirectedGraph(),
		ids:   make(map[string]int64, len(infos)),
		infos: infos,
	}
	for i := range infos {
		id := infos[i].ID
		if id == "" {
			continue
		}
		if _, dup := h.ids[id]; dup {
			return nil, fmt.Errorf("%w: duplicate device id %q", ErrInvalidInput, id)
		}
		h.ids[id] = int64(i)
		h.g.AddNode(simple.Node(i))
	}
	for i := range infos {
		parent, ok := h.ids[infos[i].ParentID]
		child, known := h.ids[infos[i].ID]
		if !ok || !known || parent == child {
			continue
		}
		h.g.SetEdge(h.g.NewEdge(simple.Node(parent), simple.Node(child)))
		h.linked = true
	}
	return h, nil
}

// isChain reports whether each element of path is a direct child of the
// element before it.
func (h *hierarchy) isChain(path []SlotInfo) bool {
	if len(path) < 2 {
		return len(path) == 1
	}
	for i := 1; i < len(path); i++ {
		from, ok1 := h.ids[path[i-1].ID]
		to, ok2 := h.ids[path[i].ID]
		if !ok1 || !ok2 || !h.g.HasEdgeFromTo(from, to) {
			return false
		}
	}
	return true
}

// bestChain walks the ranked OLTs and, below each, picks the child MS and
// then the child SUBMS with the most free ports. The longest chain wins;
// ties go to the better-ranked OLT.
func (h *hierarchy) bestChain(olts []SlotInfo) []SlotInfo {
	best := []SlotInfo{}
	for i := range olts {
		id, ok := h.ids[olts[i].ID]
		if !ok {
			continue
		}
		chain := []SlotInfo{olts[i]}
		next := id
		for _, dt := range []models.DeviceType{models.DeviceTypeMS, models.DeviceTypeSUBMS} {
			child, found := h.bestChild(next, dt)
			if !found {
				break
			}
			chain = append(chain, h.infos[child])
			next = child
		}
		if len(chain) > len(best) {
			best = chain
		}
		if len(best) == 3 {
			break
		}
	}
	return best
}

func (h *hierarchy) bestChild(parent int64, dt models.DeviceType) (int64, bool) {
	var (
		best  int64
		found bool
	)
	children := h.g.From(parent)
	for children.Next() {
		n := children.Node().ID()
		info := &h.infos[n]
		if info.DeviceType != dt || info.AvailablePorts == 0 {
			continue
		}
		if !found || betterSlot(info, &h.infos[best], n, best) {
			best, found = n, true
		}
	}
	return best, found
}

// betterSlot orders by free ports, then by input position for determinism
// (graph iteration order is unspecified).
func betterSlot(a, b *SlotInfo, ai, bi int64) bool {
	if a.AvailablePorts != b.AvailablePorts {
		return a.AvailablePorts > b.AvailablePorts
	}
	return ai < bi
}
