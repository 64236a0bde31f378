package gate

// Action describes the kind of operation a subject wants to perform.
type Action string

const (
	ActionView        Action = "view"
	ActionCreate      Action = "create"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionList        Action = "list"
	ActionAcknowledge Action = "acknowledge"
	ActionDownload    Action = "download"
)
