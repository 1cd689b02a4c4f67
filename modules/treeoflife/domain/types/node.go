package types

// NodeData is a single tree node without links to other nodes.
type NodeData struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Extinct    bool   `json:"extinct"`
	Confidence int    `json:"confidence"`
}

// TreeData pairs a node id with its materialized path, e.g. "1/7/42".
type TreeData struct {
	NodeID int64  `json:"node_id"`
	Path   string `json:"path"`
}

// TreeRow is one row of a joined node+path read.
type TreeRow struct {
	Path string
	Node NodeData
}
