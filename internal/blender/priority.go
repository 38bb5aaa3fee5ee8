package blender

// priorityClass orders the scheduling priority elevation spec 4.5 calls
// for: Writer > Reader > default, so the writer never starves.
type priorityClass int

const (
	priorityDefault priorityClass = iota
	priorityReader
	priorityWriter
)
