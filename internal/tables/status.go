package tables

type Status string

const (
	StatusOrdering Status = "ordering"
	StatusPrecheck Status = "precheck"
	StatusClosed   Status = "closed"
)

// closed -> closed is allowed: closing again re-stamps closedAt.
var validNext = map[Status]map[Status]bool{
	StatusOrdering: {StatusPrecheck: true, StatusClosed: true},
	StatusPrecheck: {StatusClosed: true},
	StatusClosed:   {StatusOrdering: true, StatusClosed: true},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
