package workflow

import "github.com/weftwork/weft/pkg/models"

// executionGraph orders node execution from the trigger outward. A node
// becomes ready only when every reachable predecessor has produced output,
// so fan-in nodes wait for all their sources and execute exactly once.
type executionGraph struct {
	nodes     map[string]*models.Node
	outgoing  map[string][]string
	incoming  map[string][]string
	inDegree  map[string]int
	reachable map[string]bool
	pending   int
}

func newExecutionGraph(nodes []*models.Node, connections []*models.Connection, triggerID string) *executionGraph {
	g := &executionGraph{
		nodes:     make(map[string]*models.Node, len(nodes)),
		outgoing:  make(map[string][]string),
		incoming:  make(map[string][]string),
		inDegree:  make(map[string]int),
		reachable: make(map[string]bool),
	}

	for _, node := range nodes {
		g.nodes[node.ID] = node
	}

	for _, conn := range connections {
		if g.nodes[conn.Source] == nil || g.nodes[conn.Target] == nil {
			continue
		}

		g.addEdge(conn.Source, conn.Target)
	}

	g.markReachable(triggerID)

	// Only edges between reachable nodes count toward readiness; a
	// predecessor the trigger can never reach would otherwise block its
	// targets forever.
	for id := range g.reachable {
		degree := 0

		for _, source := range g.incoming[id] {
			if g.reachable[source] {
				degree++
			}
		}

		g.inDegree[id] = degree
		g.pending++
	}

	return g
}

// addEdge records a connection, ignoring duplicate edges between the same
// pair so fan-in counting stays accurate.
func (g *executionGraph) addEdge(source, target string) {
	for _, existing := range g.incoming[target] {
		if existing == source {
			return
		}
	}

	g.outgoing[source] = append(g.outgoing[source], target)
	g.incoming[target] = append(g.incoming[target], source)
}

func (g *executionGraph) markReachable(triggerID string) {
	queue := []string{triggerID}
	g.reachable[triggerID] = true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, target := range g.outgoing[current] {
			if !g.reachable[target] {
				g.reachable[target] = true
				queue = append(queue, target)
			}
		}
	}
}

// satisfy marks a node as executed and returns the targets whose
// predecessors are now all satisfied, in connection order.
func (g *executionGraph) satisfy(nodeID string) []*models.Node {
	ready := make([]*models.Node, 0)

	for _, target := range g.outgoing[nodeID] {
		g.inDegree[target]--

		if g.inDegree[target] == 0 {
			ready = append(ready, g.nodes[target])
		}
	}

	return ready
}

// executed counts down the reachable nodes still owed an execution. When the
// ready queue drains with unexecuted reachable nodes left, the remainder can
// only be part of a cycle.
func (g *executionGraph) executed(nodeID string) {
	if g.reachable[nodeID] {
		g.pending--
	}
}

func (g *executionGraph) unexecuted() int {
	return g.pending
}

// sources returns the source node id of every connection targeting nodeID.
func (g *executionGraph) sources(nodeID string) []string {
	return g.incoming[nodeID]
}
