package topology

import (
	"fmt"
	"strings"
)

// DiagramNode is one element of a rendered topology, in signal order.
type DiagramNode struct {
	Position         int     `json:"position" example:"1"`
	Role             string  `json:"role" example:"ms"`
	Label            string  `json:"label" example:"MS 1x16"`
	SplitterType     string  `json:"splitter_type,omitempty" example:"1x16"`
	LossDB           float64 `json:"loss_db" example:"13"`
	CumulativeLossDB float64 `json:"cumulative_loss_db" example:"13"`
}

// Diagram is the display projection of a plan: the OLT head-end, one node
// per splitter stage and the customer drop.
type Diagram struct {
	Nodes []DiagramNode `json:"nodes"`
	Text  string        `json:"text" example:"OLT (GPON) -> MS 1x16 [13.0 dB] -> SUBMS 1x4 [20.0 dB] -> 24 customers"`
}

// BuildDiagram projects plan into a Diagram. Stage order is preserved and
// loss values are copied, not recomputed.
func BuildDiagram(plan *TopologyPlan) Diagram {
	if plan == nil {
		return Diagram{Nodes: []DiagramNode{}}
	}

	nodes := make([]DiagramNode, 0, len(plan.Stages)+2)
	nodes = append(nodes, DiagramNode{
		Position: 0,
		Role:     "olt",
		Label:    fmt.Sprintf("OLT (%s)", plan.PonType.Label()),
	})
	for _, st := range plan.Stages {
		nodes = append(nodes, DiagramNode{
			Position:         st.StageIndex,
			Role:             string(st.Role),
			Label:            fmt.Sprintf("%s %s", strings.ToUpper(string(st.Role)), st.SplitterType),
			SplitterType:     string(st.SplitterType),
			LossDB:           st.InsertionLossDB,
			CumulativeLossDB: st.CumulativeLossDB,
		})
	}
	nodes = append(nodes, DiagramNode{
		Position:         len(plan.Stages) + 1,
		Role:             "customer",
		Label:            fmt.Sprintf("%d customers", plan.SubscriberCount),
		CumulativeLossDB: plan.TotalLossDB,
	})

	d := Diagram{Nodes: nodes}
	d.Text = d.String()
	return d
}

// String renders the diagram on one line.
func (d Diagram) String() string {
	parts := make([]string, len(d.Nodes))
	for i, n := range d.Nodes {
		if n.SplitterType != "" {
			parts[i] = fmt.Sprintf("%s [%.1f dB]", n.Label, n.CumulativeLossDB)
			continue
		}
		parts[i] = n.Label
	}
	return strings.Join(parts, " -> ")
}
