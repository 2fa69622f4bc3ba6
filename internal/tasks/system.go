package tasks

// System defines the public contract for task registry operations.
type System interface {
	Handler() *Handler
	List() []Task
	Find(id string) (*Task, error)
	CachePath(task Task) string
	LedgerKey(task Task) string
}
