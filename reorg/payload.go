package reorg

// Channel is one measurement stream inside a part's slice payload. The
// engine never inspects Samples; whatever typed slice the reader decodes
// (commonly []float64 or []string) reaches the writer untouched.
type Channel struct {
	Name    string
	Samples interface{}
}

// Payload is everything one slice captured for one part: the part's
// measurement channels plus the properties recorded at slice scope and
// at part scope.
type Payload struct {
	Part       string
	Channels   []Channel
	SliceProps map[string]interface{}
	PartProps  map[string]interface{}
}
